package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"TutorChat/internal/config"
	"TutorChat/internal/conversation"
	"TutorChat/internal/evaluation"
	"TutorChat/internal/journal"
	"TutorChat/internal/session"
	"TutorChat/internal/telemetry"
)

const defaultHistoryLimit = 5

// ChatBot represents the interactive exercise application
type ChatBot struct {
	config   config.Config
	version  string
	logger   *slog.Logger
	client   conversation.Evaluator
	journal  *journal.Store
	ctrl     *conversation.Controller
	renderer *Renderer
	in       io.Reader
	out      io.Writer

	// rendering position in the current session
	rendered     int
	pendingShown bool

	closers []func()
}

// Option configures a ChatBot
type Option func(*ChatBot)

// WithEvaluator uses ev instead of an HTTP client built from the config
func WithEvaluator(ev conversation.Evaluator) Option {
	return func(cb *ChatBot) {
		cb.client = ev
	}
}

// WithIO sets where input is read from and the transcript is written to
func WithIO(in io.Reader, out io.Writer) Option {
	return func(cb *ChatBot) {
		cb.in = in
		cb.out = out
	}
}

// WithLogger uses logger instead of the rotating log file
func WithLogger(logger *slog.Logger) Option {
	return func(cb *ChatBot) {
		cb.logger = logger
	}
}

// WithJournal uses an already opened journal
func WithJournal(store *journal.Store) Option {
	return func(cb *ChatBot) {
		cb.journal = store
	}
}

// WithVersion sets the version reported in the banner and telemetry
func WithVersion(version string) Option {
	return func(cb *ChatBot) {
		cb.version = version
	}
}

// NewChatBot creates a new ChatBot instance
func NewChatBot(cfg config.Config, opts ...Option) (*ChatBot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cb := &ChatBot{
		config:  cfg,
		version: "dev",
		in:      os.Stdin,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(cb)
	}

	if cb.logger == nil {
		logger, closer, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		cb.logger = logger
		cb.closers = append(cb.closers, func() { _ = closer.Close() })
	}

	if cfg.Debug {
		cb.logger.Info("Debug mode enabled")
	}

	if cb.client == nil {
		if err := cb.initClient(); err != nil {
			cb.Close()
			return nil, err
		}
	}

	if cb.journal == nil && cfg.JournalEnabled {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			cb.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		cb.journal = store
		cb.closers = append(cb.closers, func() {
			if err := store.Close(); err != nil {
				cb.logger.Error("failed to close journal", "error", err)
			}
		})
		cb.logger.Info("attempt journal enabled", "path", cfg.JournalPath)
	}

	cb.renderer = NewRenderer(cfg.NoColor)
	cb.newSession()
	return cb, nil
}

func (cb *ChatBot) initClient() error {
	opts := []evaluation.Option{evaluation.WithTimeout(cb.config.Timeout)}

	if cb.config.Telemetry {
		tracer, meter, cleanup, err := telemetry.InitTelemetry(context.Background(), cb.config.LogDir, cb.version)
		if err != nil {
			cb.logger.Warn("failed to initialize telemetry, continuing without it", "error", err)
		} else {
			cb.closers = append(cb.closers, cleanup)
			opts = append(opts, evaluation.WithTracer(tracer), evaluation.WithMeter(meter))
		}
	}

	client, err := evaluation.NewHTTPClient(cb.config.BaseURL, cb.logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create evaluation client: %w", err)
	}
	cb.client = client
	return nil
}

// newSession discards the current conversation and starts an empty one
func (cb *ChatBot) newSession() {
	opts := []conversation.Option{
		conversation.WithLogger(cb.logger),
		conversation.WithOnChange(cb.render),
	}
	if cb.journal != nil {
		opts = append(opts, conversation.WithRecorder(cb.journal))
	}

	cb.ctrl = conversation.NewController(cb.client, opts...)
	cb.rendered = 0
	cb.pendingShown = false
	cb.logger.Info("created new session", "session_id", cb.ctrl.State().ID)
}

// render prints whatever the latest snapshot added. Student lines are not
// echoed; the terminal already shows what was typed.
func (cb *ChatBot) render(st session.State) {
	for _, msg := range st.Log[cb.rendered:] {
		if msg.Speaker == session.Student {
			continue
		}
		fmt.Fprint(cb.out, cb.renderer.Message(msg))
	}
	cb.rendered = len(st.Log)

	switch {
	case st.Pending != nil && !cb.pendingShown:
		fmt.Fprint(cb.out, cb.renderer.Message(*st.Pending))
		cb.pendingShown = true
	case st.Pending == nil:
		cb.pendingShown = false
	}
}

// Session returns a snapshot of the current session
func (cb *ChatBot) Session() session.State {
	return cb.ctrl.State()
}

// handleCommand handles special commands
func (cb *ChatBot) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/next":
		cb.ctrl.Start(ctx)
		return false, nil

	case "/new-session":
		cb.newSession()
		fmt.Fprintln(cb.out, cb.renderer.Meta("Started new session: "+cb.ctrl.State().ID))
		cb.ctrl.Start(ctx)
		return false, nil

	case "/history":
		return false, cb.showHistory(ctx, parts[1:])

	case "/help":
		fmt.Fprintln(cb.out, "Type your translation and press Enter to have it checked.")
		fmt.Fprintln(cb.out, "Available commands:")
		fmt.Fprintln(cb.out, "  /next            - Skip to a new task")
		fmt.Fprintln(cb.out, "  /new-session     - Start over with an empty conversation")
		fmt.Fprintln(cb.out, "  /history [n]     - Show the last n journal attempts")
		fmt.Fprintln(cb.out, "  /quit, /exit     - Exit")
		fmt.Fprintln(cb.out, "  /help            - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s (type /help for commands)", parts[0])
	}
}

func (cb *ChatBot) showHistory(ctx context.Context, args []string) error {
	if cb.journal == nil {
		fmt.Fprintln(cb.out, "The attempt journal is disabled. Start with --journal to enable it.")
		return nil
	}

	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: /history [n] (n must be a positive number)")
		}
		limit = n
	}

	attempts, err := cb.journal.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(attempts) == 0 {
		fmt.Fprintln(cb.out, "No attempts recorded yet.")
		return nil
	}
	for _, a := range attempts {
		fmt.Fprint(cb.out, cb.renderer.Attempt(a))
	}
	return nil
}

// Run starts the exercise loop and returns when input ends, the user quits
// or ctx is cancelled
func (cb *ChatBot) Run(ctx context.Context) error {
	defer cb.Close()

	fmt.Fprintln(cb.out, cb.renderer.Meta("=== Translation Tutor "+cb.version+" ==="))
	fmt.Fprintln(cb.out, cb.renderer.Meta("Session: "+cb.ctrl.State().ID))
	fmt.Fprintln(cb.out, cb.renderer.Meta("Type /help for commands, /quit to exit"))
	fmt.Fprintln(cb.out)

	cb.ctrl.Start(ctx)

	// Lines are read in the background so shutdown does not wait on stdin
	lines := make(chan string)
	var readErr error
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cb.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr = scanner.Err()
	}()

loop:
	for {
		fmt.Fprint(cb.out, cb.renderer.Prompt())

		var input string
		select {
		case <-ctx.Done():
			cb.logger.Info("shutting down", "reason", ctx.Err())
			fmt.Fprintln(cb.out)
			break loop
		case line, ok := <-lines:
			if !ok {
				if readErr != nil {
					cb.logger.Error("failed to read input", "error", readErr)
					return fmt.Errorf("failed to read input: %w", readErr)
				}
				break loop
			}
			input = strings.TrimSpace(line)
		}

		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := cb.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(cb.out, "Error: %v\n", err)
				cb.logger.Warn("command error", "command", input, "error", err)
			}
			if shouldQuit {
				break loop
			}
			continue
		}

		cb.ctrl.SetDraft(input)
		cb.ctrl.SubmitDraft(ctx)
	}

	st := cb.ctrl.State()
	cb.logger.Info("session ended", "session_id", st.ID, "message_count", len(st.Log))
	fmt.Fprintln(cb.out, "\nGoodbye!")
	return nil
}

// Close releases the log file, telemetry exporters and the journal.
// It is safe to call more than once.
func (cb *ChatBot) Close() {
	for i := len(cb.closers) - 1; i >= 0; i-- {
		cb.closers[i]()
	}
	cb.closers = nil
}
