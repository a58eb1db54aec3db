// Package conversation drives the exercise cycle: fetch a task, accept a
// translation, have it evaluated, fetch the next task.
package conversation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"TutorChat/internal/session"

	"github.com/google/uuid"
)

// Static lines shown by the controller
const (
	PreparingTaskNotice   = "Preparing your next task..."
	TaskUnavailableNotice = "Could not load a new task. Type /next to try again."
	CheckFailedNotice     = "Could not reach the evaluation service. Please try again later."
)

// Evaluator is the remote side of the exercise
type Evaluator interface {
	FetchNextTask(ctx context.Context) (string, error)
	CheckTranslation(ctx context.Context, studentText, taskText string) (json.RawMessage, error)
}

// Recorder keeps evaluated attempts
type Recorder interface {
	Record(ctx context.Context, attempt session.Attempt) error
}

// Controller owns one session state and guards it with the busy flag:
// at most one remote call is outstanding at any time.
type Controller struct {
	mu       sync.Mutex
	state    *session.State
	client   Evaluator
	recorder Recorder
	onChange func(session.State)
	logger   *slog.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRecorder records every successfully evaluated attempt
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithOnChange registers a callback that receives a snapshot after every
// state transition. It runs synchronously on the goroutine that caused the
// transition and must not call back into the controller's mutating methods.
func WithOnChange(fn func(session.State)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// WithState starts the controller from an existing state
func WithState(s *session.State) Option {
	return func(c *Controller) {
		c.state = s
	}
}

// NewController creates a controller for a fresh session
func NewController(client Evaluator, opts ...Option) *Controller {
	c := &Controller{
		state:  session.New(),
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.logger = c.logger.With("session_id", c.state.ID)
	return c
}

// State returns a snapshot of the session state
func (c *Controller) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Busy reports whether a remote call is outstanding
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Busy
}

// SetDraft replaces the unsent input
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.state.Draft = text
	c.mu.Unlock()
	c.notify()
}

// Start fetches a task and appends it to the log. It returns false without
// doing anything while another call is outstanding.
func (c *Controller) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.state.Busy {
		c.mu.Unlock()
		c.logger.Debug("start ignored while busy")
		return false
	}
	c.state.Busy = true
	c.mu.Unlock()
	defer c.release()

	c.nextTask(ctx)
	return true
}

// SubmitDraft submits the current draft
func (c *Controller) SubmitDraft(ctx context.Context) bool {
	c.mu.Lock()
	draft := c.state.Draft
	c.mu.Unlock()
	return c.Submit(ctx, draft)
}

// Submit sends a translation of the current task for evaluation. Empty
// input and calls made while busy are ignored and return false.
func (c *Controller) Submit(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.state.Busy {
		c.mu.Unlock()
		c.logger.Debug("submit ignored while busy")
		return false
	}
	task := c.state.TaskContext()
	c.state.Append(session.StudentMessage(text))
	c.state.Draft = ""
	c.state.Busy = true
	c.mu.Unlock()
	c.notify()
	defer c.release()

	c.logger.Info("submitting translation", "task_length", len(task), "translation_length", len(text))

	result, err := c.client.CheckTranslation(ctx, text, task)
	if err != nil {
		c.logger.Error("translation check failed", "error", err)
		c.append(session.NoticeMessage(CheckFailedNotice))
		return true
	}

	c.append(session.EvaluationMessage(result))
	c.record(ctx, task, text, result)

	c.nextTask(ctx)
	return true
}

// nextTask runs one task fetch. The caller holds the busy flag.
func (c *Controller) nextTask(ctx context.Context) {
	pending := session.NoticeMessage(PreparingTaskNotice)
	c.mu.Lock()
	c.state.Pending = &pending
	c.mu.Unlock()
	c.notify()

	task, err := c.client.FetchNextTask(ctx)

	c.mu.Lock()
	c.state.Pending = nil
	if err != nil {
		c.state.Append(session.NoticeMessage(TaskUnavailableNotice))
	} else {
		c.state.Append(session.TeacherMessage(task))
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.logger.Error("failed to fetch next task", "error", err)
		return
	}
	c.logger.Info("received task", "task_length", len(task))
}

func (c *Controller) record(ctx context.Context, task, translation string, result json.RawMessage) {
	if c.recorder == nil {
		return
	}
	c.mu.Lock()
	sessionID := c.state.ID
	c.mu.Unlock()

	attempt := session.Attempt{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Task:        task,
		Translation: translation,
		Evaluation:  append(json.RawMessage(nil), result...),
		CreatedAt:   time.Now(),
	}
	if err := c.recorder.Record(ctx, attempt); err != nil {
		c.logger.Warn("failed to record attempt", "error", err)
	}
}

func (c *Controller) append(msg session.Message) {
	c.mu.Lock()
	c.state.Append(msg)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) release() {
	c.mu.Lock()
	c.state.Busy = false
	c.state.Pending = nil
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.State())
}
