package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/marklive/internal/config"
	"github.com/conneroisu/marklive/internal/errors"
)

const (
	envPrefix         = "MARKLIVE"
	configFileEnv     = "MARKLIVE_CONFIG_FILE"
	defaultConfigName = ".marklive"
)

var (
	cfgFile       string
	configReadErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "marklive",
	Short: "Live browser preview for a Markdown file",
	Long: `marklive renders a Markdown document to HTML, serves it on a local
HTTP port and reloads every open browser tab when the file changes.

Quick Start:
  marklive serve README.md          Preview a file and open the browser
  marklive serve -C                 Preview the clipboard once
  cat notes.md | marklive serve     Preview stdin once
  marklive config show              Print the effective configuration

Documentation: https://github.com/conneroisu/marklive`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .marklive.yml, can also use "+configFileEnv+" env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the configuration file and the environment.
//
// The file is, in order: the --config flag, MARKLIVE_CONFIG_FILE, or
// .marklive.yml in the working directory. Every key can be overridden by
// an environment variable such as MARKLIVE_SERVER_PORT or
// MARKLIVE_WATCH_POLL_INTERVAL.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(configFileEnv); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(defaultConfigName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// A missing default file is fine; defaults apply. Anything else is
	// reported when a command loads its configuration.
	configReadErr = nil
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			configReadErr = err
		}
		return
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
}

// loadConfig resolves the effective configuration, wrapping failures with
// suggestions for the user.
func loadConfig() (*config.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = defaultConfigName + ".yml"
	}

	err := configReadErr
	var cfg *config.Config
	if err == nil {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.NewEnhancedError(
			"Failed to load configuration",
			err,
			errors.ConfigurationError(err.Error(), path),
		)
	}

	return cfg, nil
}
