// Package evaltest provides an in-process stub of the evaluation service for tests.
package evaltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"TutorChat/internal/backend"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is a scripted evaluation service. Tasks are handed out in order and
// the last one repeats once the script is exhausted.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	tasks       []string
	served      int
	result      json.RawMessage
	nextStatus  int
	checkStatus int
	checks      []backend.CheckRequest
}

// NewServer starts a stub service and closes it when the test ends.
// The service URL for a client is s.URL.
func NewServer(t testing.TB, tasks ...string) *Server {
	t.Helper()

	s := &Server{
		tasks:  tasks,
		result: json.RawMessage(`{"score":10}`),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/next", s.handleNext)
	r.Post("/check", s.handleCheck)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SetResult sets the payload returned inside {"result": ...} by /check
func (s *Server) SetResult(result json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

// FailNext makes /next answer with status until reset with 0
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStatus = status
}

// FailCheck makes /check answer with status until reset with 0
func (s *Server) FailCheck(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkStatus = status
}

// Checks returns the check requests received so far
func (s *Server) Checks() []backend.CheckRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backend.CheckRequest, len(s.checks))
	copy(out, s.checks)
	return out
}

// TasksServed returns how many tasks /next has handed out
func (s *Server) TasksServed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.served
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.nextStatus
	var task string
	if status == 0 && len(s.tasks) > 0 {
		i := s.served
		if i >= len(s.tasks) {
			i = len(s.tasks) - 1
		}
		task = s.tasks[i]
		s.served++
	}
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status, "task generation failed")
		return
	}
	if task == "" {
		writeError(w, http.StatusInternalServerError, "no tasks scripted")
		return
	}
	writeJSON(w, http.StatusOK, backend.TaskResponse{TaskText: task})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req backend.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	s.mu.Lock()
	s.checks = append(s.checks, req)
	status := s.checkStatus
	result := s.result
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status, "evaluation failed")
		return
	}
	writeJSON(w, http.StatusOK, backend.CheckResponse{Result: result})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
