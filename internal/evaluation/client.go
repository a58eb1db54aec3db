// Package evaluation talks to the remote translation evaluation service.
package evaluation

import (
	"context"
	"encoding/json"
)

// Client represents a connection to the evaluation service
type Client interface {
	// FetchNextTask returns the text of the next exercise task
	FetchNextTask(ctx context.Context) (string, error)

	// CheckTranslation sends a translation for evaluation and returns the
	// service's result payload as is
	CheckTranslation(ctx context.Context, studentText, taskText string) (json.RawMessage, error)
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
