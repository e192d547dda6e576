package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/joao-cainglet/fss-va-2025/internal"
)

// MarkdownExporter writes a readable transcript. Assistant replies are
// already Markdown and are written as-is; user text is quoted.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(session *internal.Session, w io.Writer) error {
	title := session.Metadata.Title
	if title == "" {
		title = "Session " + session.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	_, _ = fmt.Fprintf(w, "**ID:** %s  \n", session.ID)
	if session.Metadata.Intent != "" {
		_, _ = fmt.Fprintf(w, "**Intent:** %s  \n", session.Metadata.Intent)
	}
	if session.Metadata.CreatedAt != "" {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", session.Metadata.CreatedAt)
	}
	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", session.Source)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))

	for _, msg := range session.Messages {
		_, _ = fmt.Fprintf(w, "---\n\n### %s\n\n", roleHeading(msg.Role))
		if msg.Role == internal.RoleUser {
			_, _ = fmt.Fprintf(w, "%s\n\n", quote(msg.Content))
		} else {
			_, _ = fmt.Fprintf(w, "%s\n\n", strings.TrimRight(msg.Content, "\n"))
		}
	}
	return nil
}

func roleHeading(r internal.Role) string {
	switch r {
	case internal.RoleUser:
		return "You"
	case internal.RoleAssistant:
		return "Assistant"
	case internal.RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// quote prefixes every line with "> " so user text cannot break the layout
func quote(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}
