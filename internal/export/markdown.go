package export

import (
	"fmt"
	"io"

	"TutorChat/internal/evaluation"
	"TutorChat/internal/session"
)

// MarkdownExporter exports attempts as a training journal
type MarkdownExporter struct{}

// Export exports attempts to Markdown format
func (e *MarkdownExporter) Export(attempts []session.Attempt, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# Training journal\n\n**Attempts:** %d\n\n---\n", len(attempts)); err != nil {
		return err
	}

	for _, a := range attempts {
		_, _ = fmt.Fprintf(w, "\n### Task\n\n")
		_, _ = fmt.Fprintf(w, "*%s*\n\n", a.CreatedAt.Format("2006-01-02 15:04"))
		_, _ = fmt.Fprintf(w, "**Task:**\n%s\n\n", a.Task)
		_, _ = fmt.Fprintf(w, "**My answer:**\n%s\n\n", a.Translation)
		_, _ = fmt.Fprintf(w, "**Check:**\n")
		for _, f := range evaluation.Fields(a.Evaluation) {
			if f.Label == "" {
				_, _ = fmt.Fprintf(w, "- %s\n", f.Value)
				continue
			}
			_, _ = fmt.Fprintf(w, "- **%s:** %s\n", f.Label, f.Value)
		}
		if _, err := fmt.Fprintf(w, "\n---\n"); err != nil {
			return err
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
