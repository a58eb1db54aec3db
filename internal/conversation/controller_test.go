package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"TutorChat/internal/session"
)

// fakeEvaluator answers from scripted queues. An empty queue returns
// errUnscripted.
type fakeEvaluator struct {
	mu      sync.Mutex
	tasks   []taskReply
	checks  []checkReply
	calls   []checkCall
	fetches int
}

type taskReply struct {
	text string
	err  error
}

type checkReply struct {
	result json.RawMessage
	err    error
}

type checkCall struct {
	student string
	task    string
}

var errUnscripted = errors.New("unscripted call")

func (f *fakeEvaluator) FetchNextTask(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if len(f.tasks) == 0 {
		return "", errUnscripted
	}
	r := f.tasks[0]
	f.tasks = f.tasks[1:]
	return r.text, r.err
}

func (f *fakeEvaluator) CheckTranslation(ctx context.Context, studentText, taskText string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, checkCall{student: studentText, task: taskText})
	if len(f.checks) == 0 {
		return nil, errUnscripted
	}
	r := f.checks[0]
	f.checks = f.checks[1:]
	return r.result, r.err
}

type fakeRecorder struct {
	attempts []session.Attempt
	err      error
}

func (r *fakeRecorder) Record(ctx context.Context, a session.Attempt) error {
	r.attempts = append(r.attempts, a)
	return r.err
}

func TestStartOnEmptyLog(t *testing.T) {
	ev := &fakeEvaluator{tasks: []taskReply{{text: "Translate: The cat sleeps."}}}
	c := NewController(ev)

	if !c.Start(context.Background()) {
		t.Fatal("Start() returned false on an idle controller")
	}

	st := c.State()
	if len(st.Log) != 1 {
		t.Fatalf("log length = %d, want 1", len(st.Log))
	}
	got := st.Log[0]
	if got.Speaker != session.Teacher || got.Body != "Translate: The cat sleeps." || got.Notice || got.IsEvaluation {
		t.Errorf("unexpected task message: %+v", got)
	}
	if st.Busy {
		t.Error("expected busy=false after Start")
	}
	if st.Pending != nil {
		t.Errorf("expected placeholder to be cleared, got %+v", st.Pending)
	}
}

func TestStartFetchFailure(t *testing.T) {
	ev := &fakeEvaluator{tasks: []taskReply{{err: errors.New("transport error")}}}
	c := NewController(ev)

	c.Start(context.Background())

	st := c.State()
	if len(st.Log) != 1 {
		t.Fatalf("log length = %d, want 1", len(st.Log))
	}
	if !st.Log[0].Notice || st.Log[0].Body != TaskUnavailableNotice || st.Log[0].Speaker != session.Teacher {
		t.Errorf("unexpected failure message: %+v", st.Log[0])
	}
	if st.Busy {
		t.Error("expected busy=false after failed Start")
	}
}

func TestRepeatedStartAppendsOneMessageEach(t *testing.T) {
	ev := &fakeEvaluator{tasks: []taskReply{{text: "A"}, {err: errors.New("down")}, {text: "C"}}}
	c := NewController(ev)

	var prev []session.Message
	for i := 0; i < 3; i++ {
		c.Start(context.Background())
		st := c.State()
		if len(st.Log) != i+1 {
			t.Fatalf("after Start #%d log length = %d, want %d", i+1, len(st.Log), i+1)
		}
		for j, m := range prev {
			if st.Log[j].Body != m.Body || st.Log[j].Notice != m.Notice || !st.Log[j].Timestamp.Equal(m.Timestamp) {
				t.Errorf("entry %d changed from %+v to %+v", j, m, st.Log[j])
			}
		}
		prev = st.Log
	}
}

func TestSubmitSuccess(t *testing.T) {
	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "Translate: The cat sleeps."}, {text: "Translate: The dog runs."}},
		checks: []checkReply{{result: json.RawMessage(`{"score":9}`)}},
	}
	c := NewController(ev)
	c.Start(context.Background())
	c.SetDraft("Кошка спит.")

	if !c.Submit(context.Background(), "  Кошка спит.  ") {
		t.Fatal("Submit() returned false")
	}

	st := c.State()
	if len(st.Log) != 4 {
		t.Fatalf("log length = %d, want 4: %+v", len(st.Log), st.Log)
	}
	student, eval, next := st.Log[1], st.Log[2], st.Log[3]
	if student.Speaker != session.Student || student.Body != "Кошка спит." {
		t.Errorf("unexpected student message: %+v", student)
	}
	if eval.Speaker != session.Teacher || !eval.IsEvaluation || string(eval.EvaluationData) != `{"score":9}` {
		t.Errorf("unexpected evaluation message: %+v", eval)
	}
	if next.Body != "Translate: The dog runs." || next.IsEvaluation || next.Notice {
		t.Errorf("unexpected follow-up task: %+v", next)
	}
	if st.Draft != "" {
		t.Errorf("draft = %q, want empty", st.Draft)
	}
	if st.Busy {
		t.Error("expected busy=false after Submit")
	}
	if len(ev.calls) != 1 || ev.calls[0].task != "Translate: The cat sleeps." || ev.calls[0].student != "Кошка спит." {
		t.Errorf("unexpected check calls: %+v", ev.calls)
	}
}

func TestSubmitFailure(t *testing.T) {
	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "Translate: The cat sleeps."}},
		checks: []checkReply{{err: errors.New("transport error")}},
	}
	c := NewController(ev)
	c.Start(context.Background())

	if !c.Submit(context.Background(), "Кошка спит.") {
		t.Fatal("Submit() returned false")
	}

	st := c.State()
	if len(st.Log) != 3 {
		t.Fatalf("log length = %d, want 3", len(st.Log))
	}
	notice := st.Log[2]
	if notice.Speaker != session.Teacher || !notice.Notice || notice.Body != CheckFailedNotice {
		t.Errorf("unexpected failure notice: %+v", notice)
	}
	if ev.fetches != 1 {
		t.Errorf("fetches = %d, want 1 (no re-fetch after failed check)", ev.fetches)
	}
	if st.Busy {
		t.Error("expected busy=false after failed Submit")
	}
}

func TestSubmitRetryUsesSameTask(t *testing.T) {
	ev := &fakeEvaluator{
		tasks: []taskReply{{text: "A"}, {text: "B"}},
		checks: []checkReply{
			{err: errors.New("transport error")},
			{result: json.RawMessage(`{"score":5}`)},
		},
	}
	c := NewController(ev)
	c.Start(context.Background())

	c.Submit(context.Background(), "first try")
	c.Submit(context.Background(), "second try")

	if len(ev.calls) != 2 {
		t.Fatalf("check calls = %d, want 2", len(ev.calls))
	}
	for i, call := range ev.calls {
		if call.task != "A" {
			t.Errorf("call %d task = %q, want A", i+1, call.task)
		}
	}
}

func TestSubmitPhaseAppendsTwoEntries(t *testing.T) {
	ev := &fakeEvaluator{
		tasks: []taskReply{{text: "A"}, {text: "B"}, {text: "C"}},
		checks: []checkReply{
			{result: json.RawMessage(`{"score":1}`)},
			{err: errors.New("down")},
			{result: json.RawMessage(`{"score":2}`)},
		},
	}
	c := NewController(ev)
	c.Start(context.Background())

	for i, ok := range []bool{true, false, true} {
		before := len(c.State().Log)
		c.Submit(context.Background(), "answer")
		st := c.State()

		want := before + 2
		if ok {
			want++ // follow-up task
		}
		if len(st.Log) != want {
			t.Fatalf("submit #%d: log length = %d, want %d", i+1, len(st.Log), want)
		}
		if st.Log[before].Speaker != session.Student {
			t.Errorf("submit #%d: first appended entry is %+v", i+1, st.Log[before])
		}
		outcome := st.Log[before+1]
		if outcome.IsEvaluation != ok || outcome.Notice == ok {
			t.Errorf("submit #%d: unexpected outcome entry %+v", i+1, outcome)
		}
		if st.Draft != "" {
			t.Errorf("submit #%d: draft = %q", i+1, st.Draft)
		}
	}
}

func TestSubmitIgnoresEmptyText(t *testing.T) {
	ev := &fakeEvaluator{tasks: []taskReply{{text: "A"}}}
	c := NewController(ev)
	c.Start(context.Background())
	c.SetDraft("   ")

	for _, text := range []string{"", "   ", "\n\t"} {
		if c.Submit(context.Background(), text) {
			t.Errorf("Submit(%q) returned true", text)
		}
	}
	if c.SubmitDraft(context.Background()) {
		t.Error("SubmitDraft() with whitespace draft returned true")
	}

	st := c.State()
	if len(st.Log) != 1 {
		t.Errorf("log length = %d, want 1", len(st.Log))
	}
	if st.Draft != "   " {
		t.Errorf("draft = %q, want unchanged", st.Draft)
	}
	if len(ev.calls) != 0 {
		t.Errorf("unexpected check calls: %+v", ev.calls)
	}
}

func TestTaskContextWithoutTask(t *testing.T) {
	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "next"}},
		checks: []checkReply{{result: json.RawMessage(`{}`)}},
	}
	c := NewController(ev)

	c.Submit(context.Background(), "hello")

	if len(ev.calls) != 1 || ev.calls[0].task != "" {
		t.Errorf("expected one check with empty task, got %+v", ev.calls)
	}
}

func TestTaskContextSkipsEvaluations(t *testing.T) {
	st := session.New()
	st.Append(session.TeacherMessage("A"))
	st.Append(session.StudentMessage("x"))
	st.Append(session.EvaluationMessage(json.RawMessage(`{"score":1}`)))
	st.Append(session.TeacherMessage("B"))

	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "C"}},
		checks: []checkReply{{result: json.RawMessage(`{"score":2}`)}},
	}
	c := NewController(ev, WithState(st))
	c.Submit(context.Background(), "y")

	if len(ev.calls) != 1 || ev.calls[0].task != "B" {
		t.Errorf("expected task context B, got %+v", ev.calls)
	}
}

func TestSubmitDraft(t *testing.T) {
	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "A"}, {text: "B"}},
		checks: []checkReply{{result: json.RawMessage(`{"score":7}`)}},
	}
	c := NewController(ev)
	c.Start(context.Background())
	c.SetDraft("my answer")

	if !c.SubmitDraft(context.Background()) {
		t.Fatal("SubmitDraft() returned false")
	}
	st := c.State()
	if st.Draft != "" {
		t.Errorf("draft = %q, want empty", st.Draft)
	}
	if st.Log[1].Body != "my answer" {
		t.Errorf("student message = %+v", st.Log[1])
	}
}

func TestRecorderReceivesAttempt(t *testing.T) {
	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "A"}, {text: "B"}},
		checks: []checkReply{{result: json.RawMessage(`{"score":9}`)}},
	}
	rec := &fakeRecorder{}
	c := NewController(ev, WithRecorder(rec))
	c.Start(context.Background())
	c.Submit(context.Background(), "answer")

	if len(rec.attempts) != 1 {
		t.Fatalf("recorded %d attempts, want 1", len(rec.attempts))
	}
	a := rec.attempts[0]
	if a.Task != "A" || a.Translation != "answer" || string(a.Evaluation) != `{"score":9}` {
		t.Errorf("unexpected attempt: %+v", a)
	}
	if a.SessionID != c.State().ID || a.ID == "" {
		t.Errorf("unexpected identity: id=%q session=%q", a.ID, a.SessionID)
	}
}

func TestRecorderErrorDoesNotSurface(t *testing.T) {
	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "A"}, {text: "B"}},
		checks: []checkReply{{result: json.RawMessage(`{"score":9}`)}},
	}
	c := NewController(ev, WithRecorder(&fakeRecorder{err: errors.New("disk full")}))
	c.Start(context.Background())
	c.Submit(context.Background(), "answer")

	st := c.State()
	if len(st.Log) != 4 || st.Log[3].Body != "B" {
		t.Errorf("journal failure changed the conversation: %+v", st.Log)
	}
}

func TestFailedCheckIsNotRecorded(t *testing.T) {
	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "A"}},
		checks: []checkReply{{err: errors.New("down")}},
	}
	rec := &fakeRecorder{}
	c := NewController(ev, WithRecorder(rec))
	c.Start(context.Background())
	c.Submit(context.Background(), "answer")

	if len(rec.attempts) != 0 {
		t.Errorf("recorded %d attempts, want 0", len(rec.attempts))
	}
}

func TestOnChangeSnapshots(t *testing.T) {
	ev := &fakeEvaluator{
		tasks:  []taskReply{{text: "A"}, {text: "B"}},
		checks: []checkReply{{result: json.RawMessage(`{"score":9}`)}},
	}
	var snaps []session.State
	c := NewController(ev, WithOnChange(func(s session.State) {
		snaps = append(snaps, s)
	}))

	c.Start(context.Background())
	if len(snaps) == 0 {
		t.Fatal("no notifications during Start")
	}
	first := snaps[0]
	if !first.Busy || first.Pending == nil || first.Pending.Body != PreparingTaskNotice {
		t.Errorf("first Start notification should show the placeholder while busy: %+v", first)
	}
	if last := snaps[len(snaps)-1]; last.Busy || last.Pending != nil || len(last.Log) != 1 {
		t.Errorf("last Start notification should be idle with one message: %+v", last)
	}

	snaps = nil
	c.Submit(context.Background(), "answer")
	for i, s := range snaps[:len(snaps)-1] {
		if !s.Busy {
			t.Errorf("notification %d during Submit reported busy=false", i)
		}
	}
	if last := snaps[len(snaps)-1]; last.Busy {
		t.Error("final Submit notification should be idle")
	}
}

// blockingEvaluator holds every call until released
type blockingEvaluator struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingEvaluator() *blockingEvaluator {
	return &blockingEvaluator{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (b *blockingEvaluator) FetchNextTask(ctx context.Context) (string, error) {
	b.entered <- struct{}{}
	<-b.release
	return "task", nil
}

func (b *blockingEvaluator) CheckTranslation(ctx context.Context, studentText, taskText string) (json.RawMessage, error) {
	b.entered <- struct{}{}
	<-b.release
	return json.RawMessage(`{"score":1}`), nil
}

func waitEntered(t *testing.T, b *blockingEvaluator) {
	t.Helper()
	select {
	case <-b.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the remote call")
	}
}

func TestBusyRejectsConcurrentCalls(t *testing.T) {
	ev := newBlockingEvaluator()
	c := NewController(ev)

	done := make(chan bool)
	go func() {
		done <- c.Submit(context.Background(), "first")
	}()
	waitEntered(t, ev)

	if !c.Busy() {
		t.Fatal("expected busy while the check is outstanding")
	}
	before := c.State()
	c.SetDraft("typing while busy")

	if c.Submit(context.Background(), "second") {
		t.Error("Submit() accepted while busy")
	}
	if c.Start(context.Background()) {
		t.Error("Start() accepted while busy")
	}
	after := c.State()
	if len(after.Log) != len(before.Log) || !after.Busy {
		t.Errorf("rejected calls changed state: before=%d after=%d busy=%v", len(before.Log), len(after.Log), after.Busy)
	}
	if after.Draft != "typing while busy" {
		t.Errorf("draft = %q, want it untouched by the rejected submit", after.Draft)
	}

	ev.release <- struct{}{} // check
	waitEntered(t, ev)       // follow-up fetch
	if !c.Busy() {
		t.Error("expected busy during the follow-up task fetch")
	}
	ev.release <- struct{}{}

	select {
	case ok := <-done:
		if !ok {
			t.Error("first Submit() returned false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit() did not return")
	}
	if c.Busy() {
		t.Error("expected idle after settlement")
	}
	if n := len(c.State().Log); n != 3 {
		t.Errorf("log length = %d, want 3", n)
	}
}
