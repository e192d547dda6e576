package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchDeep    bool
	searchOffline bool
)

var snippetStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("250")).
	PaddingLeft(4)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find sessions by title or contents",
	Long: `Filter your sessions by title, ignoring case.

With --deep the message contents are searched as well, fetching each
session's history. With --offline only the local transcript cache is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		a := newApp(cfg)
		defer a.close()
		ctx := cmd.Context()

		var (
			sessions []internal.ChatSession
			source   search.DetailSource = a.client
		)
		if searchOffline {
			cache, err := a.requireCache()
			if err != nil {
				return err
			}
			if sessions, err = cache.ListSessions(ctx); err != nil {
				return fmt.Errorf("failed to read transcript cache: %w", err)
			}
			source = cache
		} else {
			if err := a.fetchSessions(ctx); err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			sessions = a.store.Sessions()
		}

		var matches []search.Match
		if searchDeep {
			var err error
			matches, err = search.New(source).Deep(ctx, sessions, query)
			if err != nil {
				return fmt.Errorf("search failed: %w", loginHint(err))
			}
		} else {
			for _, s := range search.FilterByTitle(sessions, query) {
				matches = append(matches, search.Match{Session: s, InTitle: true})
			}
		}

		displayMatches(cmd.OutOrStdout(), matches, query)
		return nil
	},
}

func displayMatches(w io.Writer, matches []search.Match, query string) {
	if len(matches) == 0 {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("🔍 No sessions match %q", query)))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("🔍 %d session(s) match", len(matches))))
	fmt.Fprintln(w)
	for _, m := range matches {
		fmt.Fprintf(w, "%s  %s  %s\n", idStyle.Render(m.Session.ID), m.Session.DisplayTitle(), intentStyle.Render(string(m.Session.Intent)))
		for _, snippet := range m.Snippets {
			fmt.Fprintln(w, snippetStyle.Render(snippet))
		}
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchDeep, "deep", false, "Also search message contents")
	searchCmd.Flags().BoolVar(&searchOffline, "offline", false, "Search the local transcript cache only")
}
