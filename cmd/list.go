package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/internal/chat"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var (
	listClearCache bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	intentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chat sessions",
	Long: `List your chat sessions, newest first.

The session you were last in is marked with an arrow.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.close()

		if listClearCache {
			cache, err := a.requireCache()
			if err != nil {
				return err
			}
			if err := cache.Clear(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Transcript cache cleared")
			}
		}

		if err := a.fetchSessions(cmd.Context()); err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		displaySessions(cmd.OutOrStdout(), a.store.Sessions(), lastSessionID(), time.Now())
		return nil
	},
}

// lastSessionID returns the session of the last visited route, if any
func lastSessionID() string {
	state, err := internal.LoadUIState(cfg.StatePath())
	if err != nil {
		internal.LogDebug("Ignoring UI state: %v", err)
		return ""
	}
	route, err := chat.ParseRoute(state.LastRoute)
	if err != nil {
		return ""
	}
	return route.SessionID()
}

func displaySessions(w io.Writer, sessions []internal.ChatSession, activeID string, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, headerStyle.Render("📋 No sessions yet. Start one with `fssva chat`."))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions))))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, " \t"+titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Intent")+"\t"+titleStyle.Render("Created")+"\t")
	_, _ = fmt.Fprintln(tw, strings.Repeat("─", 90))

	for _, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = activeStyle.Render("→")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			marker,
			idStyle.Render(s.ID),
			truncate(s.DisplayTitle(), 50),
			intentStyle.Render(string(s.Intent)),
			dateStyle.Render(formatCreated(s.CreatedAt.Time, now)),
		)
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, idStyle.Render("💡 Tip: open one with ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render("fssva chat "+sessions[0].ID))
}

// formatCreated renders t relative to now
func formatCreated(t, now time.Time) string {
	if t.IsZero() {
		return "—"
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour && t.YearDay() == now.Local().YearDay():
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listClearCache, "clear-cache", false, "Clear the local transcript cache first")
}
