package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/marklive/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, commit, build time, Go version and platform of
this marklive binary.

Examples:
  marklive version               # Version, commit and platform
  marklive version --short       # Version only
  marklive version --format json # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	switch versionFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(version.GetBuildInfo())
	case "text":
		if versionShort {
			_, err := fmt.Fprintln(out, version.GetShortVersion())
			return err
		}
		return writeVersion(out)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", versionFormat)
	}
}

func writeVersion(out io.Writer) error {
	_, err := fmt.Fprintf(out, "marklive %s\n%s\n", version.GetShortVersion(), version.GetDetailedVersion())
	return err
}
