package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/joao-cainglet/fss-va-2025/internal"
)

// Exporter writes a session in one file format
type Exporter interface {
	Export(session *internal.Session, w io.Writer) error
	Extension() string
}

// Formats lists the accepted format names
func Formats() []string {
	return []string{"jsonl", "md", "yaml", "json"}
}

// NewExporter creates an exporter for format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats(), ", "))
	}
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds a file name from the session title and id
func Filename(session *internal.Session, e Exporter) string {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(session.Metadata.Title), "-"), "-")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	if slug == "" {
		return fmt.Sprintf("session_%s.%s", session.ID, e.Extension())
	}
	return fmt.Sprintf("%s_%s.%s", slug, session.ID, e.Extension())
}
