package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "banter-cli",
	Short: "Banter CLI tool",
	Long: `Banter CLI is a command-line interface for operating a Banter chat service.

Available commands:
  rooms     List the rooms in the configured database
  version   Print the CLI version

Use "banter-cli [command] --help" for more information about a specific command.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
