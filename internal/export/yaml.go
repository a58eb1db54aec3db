package export

import (
	"io"

	"TutorChat/internal/session"

	"gopkg.in/yaml.v3"
)

// YAMLExporter exports attempts in YAML format
type YAMLExporter struct{}

// Export exports attempts to YAML format
func (e *YAMLExporter) Export(attempts []session.Attempt, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(toRecords(attempts))
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
