package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newGreetCmd(configPath *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "greet",
		Short: "Print the personalised greeting for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			a, err := wireApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.processor.Greeting(cmd.Context(), userID))
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	return cmd
}
