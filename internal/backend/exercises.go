package backend

import "encoding/json"

// TaskResponse represents the response body of GET /next
type TaskResponse struct {
	TaskText string `json:"task_text"`
}

// CheckRequest represents the request body of POST /check.
// ContextTable and ContextJournal are reserved and always sent empty.
type CheckRequest struct {
	StudentTranslation string `json:"student_translation"`
	OriginalTask       string `json:"original_task"`
	ContextTable       string `json:"context_table"`
	ContextJournal     string `json:"context_journal"`
}

// CheckResponse represents the response body of POST /check.
// Result is owned by the evaluation service and kept undecoded.
type CheckResponse struct {
	Result json.RawMessage `json:"result"`
}

// NewCheckRequest builds a check request with empty context placeholders
func NewCheckRequest(studentTranslation, originalTask string) CheckRequest {
	return CheckRequest{
		StudentTranslation: studentTranslation,
		OriginalTask:       originalTask,
		ContextTable:       "",
		ContextJournal:     "",
	}
}
