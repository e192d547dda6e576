package cmd

import (
	"errors"
	"fmt"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/spf13/cobra"
)

var (
	showOffline bool
	showLimit   int
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the messages of a session",
	Long: `Display the full history of a chat session.

The history is fetched from the assistant and kept in the local transcript
cache. With --offline it is read from that cache instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		a := newApp(cfg)
		defer a.close()

		var (
			detail *internal.SessionDetail
			source = "remote"
			err    error
		)
		if showOffline {
			cache, cacheErr := a.requireCache()
			if cacheErr != nil {
				return cacheErr
			}
			source = "cache"
			detail, err = cache.GetSession(cmd.Context(), sessionID)
			if errors.Is(err, internal.ErrNotCached) {
				return fmt.Errorf("session %s is not in the local cache; run 'fssva show %s' while online first", sessionID, sessionID)
			}
		} else {
			detail, err = a.client.GetSession(cmd.Context(), sessionID)
			if err == nil && a.cache != nil {
				if cacheErr := a.cache.RecordSession(detail); cacheErr != nil {
					internal.LogWarn("Failed to cache session %s: %v", sessionID, cacheErr)
				}
			}
		}
		if err != nil {
			return fmt.Errorf("failed to load session: %w", loginHint(err))
		}

		messages := detail.Messages
		if showLimit > 0 && len(messages) > showLimit {
			messages = messages[len(messages)-showLimit:]
		}

		out := cmd.OutOrStdout()
		printSessionHeader(out, detail.ChatSession, source)
		if len(messages) == 0 {
			fmt.Fprintln(out, sessionMetaStyle.Render("  No messages yet."))
			return nil
		}
		printMessages(out, newMarkdownRenderer(), messages)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showOffline, "offline", false, "Read the session from the local transcript cache")
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Only show the last n messages")
}
