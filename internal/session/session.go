package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Speaker identifies who a message belongs to
type Speaker string

const (
	Teacher Speaker = "teacher"
	Student Speaker = "student"
)

// Message represents a single turn in the exercise conversation
type Message struct {
	Speaker        Speaker         `json:"speaker"`
	Body           string          `json:"body"`
	IsEvaluation   bool            `json:"is_evaluation,omitempty"`
	EvaluationData json.RawMessage `json:"evaluation_data,omitempty"`
	Notice         bool            `json:"notice,omitempty"` // static system line, never a task
	Timestamp      time.Time       `json:"timestamp"`
}

// State is the process-local state of one exercise session.
// Log is append-only. Pending is the provisional teacher line shown while a
// task fetch is outstanding and is never part of Log.
type State struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	Log       []Message `json:"log"`
	Draft     string    `json:"draft"`
	Busy      bool      `json:"busy"`
	Pending   *Message  `json:"pending,omitempty"`
}

// Attempt is one evaluated translation, as kept by the attempt journal
type Attempt struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Task        string          `json:"task"`
	Translation string          `json:"translation"`
	Evaluation  json.RawMessage `json:"evaluation"`
	CreatedAt   time.Time       `json:"created_at"`
}

// New creates an empty session state
func New() *State {
	return &State{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		Log:       []Message{},
	}
}

// Append adds a message to the end of the log
func (s *State) Append(msg Message) {
	s.Log = append(s.Log, msg)
}

// TaskContext returns the body of the most recent teacher message that is a
// task, or "" when the log holds none.
func (s *State) TaskContext() string {
	for i := len(s.Log) - 1; i >= 0; i-- {
		m := s.Log[i]
		if m.Speaker == Teacher && !m.IsEvaluation && !m.Notice {
			return m.Body
		}
	}
	return ""
}

// Snapshot returns a deep copy that shares nothing with s
func (s *State) Snapshot() State {
	out := *s
	out.Log = make([]Message, len(s.Log))
	for i, m := range s.Log {
		out.Log[i] = m.clone()
	}
	if s.Pending != nil {
		p := s.Pending.clone()
		out.Pending = &p
	}
	return out
}

func (m Message) clone() Message {
	if m.EvaluationData != nil {
		m.EvaluationData = append(json.RawMessage(nil), m.EvaluationData...)
	}
	return m
}

// TeacherMessage builds a task message
func TeacherMessage(body string) Message {
	return Message{Speaker: Teacher, Body: body, Timestamp: time.Now()}
}

// StudentMessage builds a student translation message
func StudentMessage(body string) Message {
	return Message{Speaker: Student, Body: body, Timestamp: time.Now()}
}

// NoticeMessage builds a static teacher notice
func NoticeMessage(body string) Message {
	return Message{Speaker: Teacher, Body: body, Notice: true, Timestamp: time.Now()}
}

// EvaluationMessage builds a teacher message carrying an evaluation payload
func EvaluationMessage(payload json.RawMessage) Message {
	return Message{
		Speaker:        Teacher,
		IsEvaluation:   true,
		EvaluationData: payload,
		Timestamp:      time.Now(),
	}
}
