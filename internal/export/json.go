package export

import (
	"encoding/json"
	"io"

	"TutorChat/internal/session"
)

// JSONExporter exports attempts as an indented JSON array
type JSONExporter struct{}

// Export exports attempts to JSON format
func (e *JSONExporter) Export(attempts []session.Attempt, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toRecords(attempts))
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
