package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/joao-cainglet/fss-va-2025/internal"
)

// JSONLExporter writes a session header line followed by one line per message
type JSONLExporter struct{}

type jsonlHeader struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Title     string          `json:"title,omitempty"`
	Intent    internal.Intent `json:"intent,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	Source    string          `json:"source"`
}

type jsonlMessage struct {
	Type    string        `json:"type"`
	Seq     int           `json:"seq"`
	Role    internal.Role `json:"role"`
	Content string        `json:"content"`
}

func (e *JSONLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	header := jsonlHeader{
		Type:      "session",
		ID:        session.ID,
		Title:     session.Metadata.Title,
		Intent:    session.Metadata.Intent,
		CreatedAt: session.Metadata.CreatedAt,
		Source:    session.Source,
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("failed to encode session header: %w", err)
	}

	for i, msg := range session.Messages {
		line := jsonlMessage{Type: "message", Seq: i, Role: msg.Role, Content: msg.Content}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message %d: %w", i, err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
