package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"chatcart/internal/core"
)

func newChatCmd(configPath *string) *cobra.Command {
	var userID, userName string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long:  "chat starts an interactive session. Lines starting with / are commands: /cart, /reset, /order, /quit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			a, err := wireApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(cmd.Context(), a.processor, userID, userName, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&userName, "name", "", "display name used in greetings")
	return cmd
}

func runChat(ctx context.Context, p *core.Processor, userID, userName string, in io.Reader, out io.Writer) error {
	sess, greeting, err := p.StartSession(ctx, userID, userName)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ChatFit: %s\n", greeting)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/cart":
			lines, err := p.Cart(sess.ID)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				fmt.Fprintln(out, "(cart is empty)")
			}
			for _, l := range lines {
				via := "manual"
				if l.AddedViaAssistant {
					via = "assistant"
				}
				fmt.Fprintf(out, "  %s  %dx %s (%s)\n", l.ProductID, l.Quantity, l.Title, via)
			}
			continue
		case "/reset":
			greeting, err := p.ResetSession(ctx, sess.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ChatFit: %s\n", greeting)
			continue
		case "/order":
			rec, err := p.RecordOrder(ctx, userID)
			if err != nil {
				fmt.Fprintf(out, "Could not record the order: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Order placed. Total orders: %d\n", rec.TotalOrders)
			continue
		}

		turn, err := p.HandleTurn(ctx, sess.ID, line)
		if errors.Is(err, core.ErrInvalidUtterance) {
			fmt.Fprintf(out, "(%v)\n", err)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ChatFit: %s\n", turn.Response)
	}
}
