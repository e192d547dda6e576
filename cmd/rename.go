package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/spf13/cobra"
)

// renameCmd represents the rename command
var renameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		title := strings.TrimSpace(strings.Join(args[1:], " "))
		if title == "" {
			return errors.New("title cannot be empty")
		}

		a := newApp(cfg)
		defer a.close()
		ctx := cmd.Context()

		if err := a.client.RenameSession(ctx, sessionID, title); err != nil {
			return fmt.Errorf("failed to rename session: %w", loginHint(err))
		}
		if err := a.fetchSessions(ctx); err != nil {
			internal.LogWarn("Renamed, but the session list could not be refreshed: %v", err)
		}
		if a.cache != nil {
			if err := a.cache.UpdateTitle(sessionID, title); err != nil && !errors.Is(err, internal.ErrNotCached) {
				internal.LogWarn("Failed to update cached title: %v", err)
			}
		}

		internal.PrintSuccess(fmt.Sprintf("Renamed %s to %q", sessionID, title))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}
