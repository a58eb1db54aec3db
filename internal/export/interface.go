// Package export writes journal attempts in the supported output formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"TutorChat/internal/session"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(attempts []session.Attempt, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, md)", format)
	}
}

// record is the serialized form of an attempt with the payload decoded so
// every format shows it as structured data
type record struct {
	ID          string      `json:"id" yaml:"id"`
	SessionID   string      `json:"session_id" yaml:"session_id"`
	Task        string      `json:"task" yaml:"task"`
	Translation string      `json:"translation" yaml:"translation"`
	Evaluation  interface{} `json:"evaluation" yaml:"evaluation"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
}

func toRecords(attempts []session.Attempt) []record {
	out := make([]record, len(attempts))
	for i, a := range attempts {
		var evaluation interface{}
		if err := json.Unmarshal(a.Evaluation, &evaluation); err != nil {
			evaluation = string(a.Evaluation)
		}
		out[i] = record{
			ID:          a.ID,
			SessionID:   a.SessionID,
			Task:        a.Task,
			Translation: a.Translation,
			Evaluation:  evaluation,
			CreatedAt:   a.CreatedAt,
		}
	}
	return out
}
