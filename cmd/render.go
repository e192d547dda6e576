package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/joao-cainglet/fss-va-2025/internal"
)

const renderWidth = 80

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	userContentStyle = lipgloss.NewStyle().
				Padding(0, 2)
)

// markdownRenderer renders assistant replies. Without a terminal it falls
// back to glamour's plain style so output stays readable when piped.
type markdownRenderer struct {
	tr *glamour.TermRenderer
}

func newMarkdownRenderer() *markdownRenderer {
	style := glamour.WithStandardStyle("notty")
	if internal.IsTerminal() {
		style = glamour.WithAutoStyle()
	}
	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(renderWidth))
	if err != nil {
		internal.LogDebug("Markdown rendering disabled: %v", err)
		return &markdownRenderer{}
	}
	return &markdownRenderer{tr: tr}
}

// Render returns md rendered for the terminal, or md itself on failure
func (r *markdownRenderer) Render(md string) string {
	if r.tr == nil {
		return md + "\n"
	}
	out, err := r.tr.Render(md)
	if err != nil {
		internal.LogDebug("Failed to render markdown: %v", err)
		return md + "\n"
	}
	return out
}

// printSessionHeader writes the title block of a session
func printSessionHeader(w io.Writer, s internal.ChatSession, source string) {
	fmt.Fprintln(w, sessionHeaderStyle.Render(s.DisplayTitle()))
	meta := []string{s.ID}
	if s.Intent != "" {
		meta = append(meta, string(s.Intent))
	}
	if !s.CreatedAt.IsZero() {
		meta = append(meta, s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if source != "" {
		meta = append(meta, source)
	}
	fmt.Fprintln(w, sessionMetaStyle.Render("  "+strings.Join(meta, " · ")))
	fmt.Fprintln(w)
}

// printMessages writes a transcript. User text is shown verbatim; assistant
// replies are rendered as markdown.
func printMessages(w io.Writer, r *markdownRenderer, msgs []internal.Message) {
	for _, msg := range msgs {
		fmt.Fprintln(w, internal.RoleLabel(msg.Role))
		if msg.Role == internal.RoleAssistant {
			fmt.Fprint(w, r.Render(msg.Content))
			continue
		}
		fmt.Fprintln(w, userContentStyle.Render(msg.Content))
		fmt.Fprintln(w)
	}
}
