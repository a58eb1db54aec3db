package evaluation

import "fmt"

// TransportError covers every way a call to the evaluation service can fail:
// network errors, timeouts, non-2xx statuses and unusable bodies.
type TransportError struct {
	Op         string // "next", "check"
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error [%s] %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error [%s] %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
