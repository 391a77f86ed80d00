package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "realmsync-cli",
	Short: "realmsync CLI tool",
	Long: `realmsync-cli is a command-line client for the realmsync session layer.

Available commands:
  play      Connect to a game server and join a session
  events    List the server event channels and local bus topics

Use "realmsync-cli [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
