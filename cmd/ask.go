package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/spf13/cobra"
)

var (
	askIntent  string
	askSession string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the reply",
	Long: `Send one message and stream the reply to stdout.

A new session is created unless --session names an existing one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return errors.New("question cannot be empty")
		}

		a := newApp(cfg)
		defer a.close()
		ctx := cmd.Context()

		ctrl := a.newController(nil)
		defer ctrl.Close()

		if askSession != "" {
			if err := ctrl.Open(ctx, askSession); err != nil {
				return fmt.Errorf("failed to open session: %w", loginHint(err))
			}
		}
		if askIntent != "" {
			intent, err := internal.ParseIntent(askIntent)
			if err != nil {
				return err
			}
			if askSession != "" && intent != ctrl.View().Intent {
				return fmt.Errorf("session %s uses the %s intent; start a new session to ask with %s", askSession, ctrl.View().Intent, intent)
			}
			if _, err := ctrl.RequestIntent(intent); err != nil {
				return err
			}
		}

		printer := &replyPrinter{w: cmd.OutOrStdout()}
		unsubscribe := ctrl.Subscribe(printer.onView)
		defer unsubscribe()

		err := ctrl.Send(ctx, question)
		view := ctrl.View()
		reply := ""
		if n := len(view.Messages); err == nil && n > 0 {
			reply = view.Messages[n-1].Content
		}
		printer.finish(reply)
		if err != nil {
			return fmt.Errorf("no reply: %w", loginHint(err))
		}

		fmt.Fprintln(cmd.ErrOrStderr(), internal.Muted("session "+view.SessionID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askIntent, "intent", "i", "", "Intent for a new session (Regulatory, Internal, Speech)")
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Continue an existing session")
}
