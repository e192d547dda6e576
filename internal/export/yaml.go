package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/joao-cainglet/fss-va-2025/internal"
)

// YAMLExporter writes the session as a YAML document
type YAMLExporter struct{}

func (e *YAMLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(session)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
