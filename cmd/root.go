package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "chatcart",
		Short:         "ChatCart: conversational shopping assistant",
		Long:          "chatcart classifies shopping utterances, resolves references to shown products, keeps a cart and remembers each user across sessions.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newChatCmd(&configPath),
		newGreetCmd(&configPath),
	)

	return rootCmd
}
