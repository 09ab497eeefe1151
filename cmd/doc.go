// Package cmd provides the command-line interface for marklive.
//
// # Available Commands
//
//   - serve: render a document and serve it with live reload
//   - config show: print the effective configuration
//   - config validate: check a configuration file
//   - version: print build information
//
// # Configuration
//
// Commands resolve settings from, highest precedence first:
//
//  1. Command-line flags
//  2. Environment variables (MARKLIVE_*)
//  3. Configuration file (.marklive.yml, --config or MARKLIVE_CONFIG_FILE)
//  4. Default values
//
// # Exit Codes
//
// marklive exits 0 after a clean shutdown on SIGINT or SIGTERM and 1 when
// startup fails. Startup errors are printed with suggestions.
package cmd
