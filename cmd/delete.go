package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/spf13/cobra"
)

var (
	deleteYes bool
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Long: `Delete a session on the server and from the local transcript cache.

You are asked to confirm unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		a := newApp(cfg)
		defer a.close()
		ctx := cmd.Context()

		if !deleteYes {
			fmt.Fprintf(cmd.OutOrStdout(), "Delete session %s? [y/N] ", sessionID)
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if !isYes(line) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		if err := a.client.DeleteSession(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", loginHint(err))
		}
		if err := a.fetchSessions(ctx); err != nil {
			internal.LogWarn("Deleted, but the session list could not be refreshed: %v", err)
		} else if _, ok := a.store.Find(sessionID); ok {
			internal.LogWarn("The server still lists session %s", sessionID)
		}
		if a.cache != nil {
			if err := a.cache.Remove(sessionID); err != nil {
				internal.LogWarn("Failed to remove cached transcript: %v", err)
			}
		}
		if lastSessionID() == sessionID {
			if err := internal.SaveUIState(cfg.StatePath(), internal.UIState{}); err != nil {
				internal.LogWarn("Failed to reset UI state: %v", err)
			}
		}

		internal.PrintSuccess(fmt.Sprintf("Deleted %s", sessionID))
		return nil
	},
}

// isYes reports whether a prompt answer means yes
func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}
