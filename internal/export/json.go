package export

import (
	"encoding/json"
	"io"

	"github.com/joao-cainglet/fss-va-2025/internal"
)

// JSONExporter writes the whole session as one indented JSON document
type JSONExporter struct{}

func (e *JSONExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(session)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
