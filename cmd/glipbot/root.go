package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "glipbot",
	Short: "glipbot relays Glip platform chats to a bot runtime",
	Long: `glipbot is a chat-relay adapter for the Glip team-messaging platform.
It authenticates against the platform, maintains a live push subscription for
new posts, and translates between platform notifications and the bot
runtime's normalized message model.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add subcommands here
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	Execute()
}
