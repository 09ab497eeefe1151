package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/marklive/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect marklive configuration",
	Long: `Inspect marklive configuration files and settings.

Examples:
  marklive config show                 # Show the effective configuration
  marklive config show --format json   # Same, as JSON
  marklive config validate             # Validate .marklive.yml
  marklive config validate --file other.yml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the configuration after loading the config file, applying
MARKLIVE_* environment overrides and filling in defaults.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configFormat string
	configFile   string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
	configValidateCmd.Flags().
		StringVarP(&configFile, "file", "f", "", "Configuration file to validate (default: .marklive.yml)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "yaml", "yml":
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "# loaded from %s\n", used)
		}
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return err
		}
		return encoder.Close()
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", configFormat)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	target := configFile
	if target == "" {
		target = defaultConfigName + ".yml"
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("configuration file %s: %w", target, err)
	}

	v := viper.New()
	v.SetConfigFile(target)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	if _, err := config.LoadFrom(v); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", target)
	return nil
}
