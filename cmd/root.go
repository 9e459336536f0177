package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "greetbot",
	Short: "greetbot - Slack bot that greets users who mention it",
	Long: `greetbot connects to Slack over Socket Mode, listens for app_mention
events and replies in the same channel with a greeting addressed to the
user who mentioned the bot.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
}
