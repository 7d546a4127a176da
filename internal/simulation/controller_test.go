package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ─── Fakes ──────────────────────────────────────────────────────────────

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// tickers hands out fake tickers and remembers them in creation order.
type tickers struct {
	mu  sync.Mutex
	all []*fakeTicker
}

func (t *tickers) factory(time.Duration) Ticker {
	t.mu.Lock()
	defer t.mu.Unlock()
	ft := &fakeTicker{ch: make(chan time.Time)}
	t.all = append(t.all, ft)
	return ft
}

func (t *tickers) last() *fakeTicker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.all) == 0 {
		return nil
	}
	return t.all[len(t.all)-1]
}

func (t *tickers) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.all)
}

type fakeStream struct {
	mu    sync.Mutex
	stops int
	log   *[]string
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	if s.log != nil {
		*s.log = append(*s.log, "capture_released")
	}
	return nil
}

func (s *fakeStream) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

type fakeDevice struct {
	stream   *fakeStream
	err      error
	acquired int
}

func (d *fakeDevice) Acquire(ctx context.Context) (CaptureStream, error) {
	d.acquired++
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

type fakeHandoff struct {
	mu      sync.Mutex
	ended   []EndedEvent
	aborted []error
	log     *[]string
}

func (h *fakeHandoff) SessionEnded(_ context.Context, ev EndedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ended = append(h.ended, ev)
	if h.log != nil {
		*h.log = append(*h.log, "handoff")
	}
}

func (h *fakeHandoff) SessionAborted(_ context.Context, _ string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aborted = append(h.aborted, err)
}

func (h *fakeHandoff) endedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ended)
}

func (h *fakeHandoff) abortedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.aborted)
}

// ─── Helpers ────────────────────────────────────────────────────────────

func fiveQuestionConfig() Config {
	return Config{
		TotalQuestions:         5,
		TotalTimeBudgetSeconds: 900,
		PerQuestionTimeSeconds: 180,
		QuestionTexts: []string{
			"Tell us about yourself.",
			"Describe a challenge you overcame.",
			"What are your strengths and weaknesses?",
			"Why do you want to join us?",
			"What salary do you expect?",
		},
	}
}

type harness struct {
	ctrl    *Controller
	stream  *fakeStream
	device  *fakeDevice
	handoff *fakeHandoff
	tickers *tickers
	order   []string
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{tickers: &tickers{}}
	h.stream = &fakeStream{log: &h.order}
	h.device = &fakeDevice{stream: h.stream}
	h.handoff = &fakeHandoff{log: &h.order}
	h.ctrl = New(cfg, Options{
		Capture:   h.device,
		Handoff:   h.handoff,
		NewTicker: h.tickers.factory,
		SessionID: func() string { return "interview_test" },
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) begin(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// ─── Tests ──────────────────────────────────────────────────────────────

func TestBeginAcquiresCaptureAndRuns(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)

	s := h.ctrl.State()
	if s.Phase != PhaseRunning {
		t.Fatalf("expected phase %s, got %s", PhaseRunning, s.Phase)
	}
	if !s.CaptureActive {
		t.Error("expected capture to be active")
	}
	if h.device.acquired != 1 {
		t.Errorf("expected 1 acquisition, got %d", h.device.acquired)
	}
	if s.Question != "Tell us about yourself." {
		t.Errorf("unexpected question %q", s.Question)
	}
	if s.TotalClock != "15:00" || s.SlotClock != "03:00" {
		t.Errorf("unexpected clocks %s / %s", s.TotalClock, s.SlotClock)
	}

	if err := h.ctrl.Begin(context.Background()); !errors.Is(err, ErrNotInCountdown) {
		t.Errorf("second Begin: expected ErrNotInCountdown, got %v", err)
	}
}

func TestSlotTimeoutAdvancesQuestion(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)

	for i := 0; i < 180; i++ {
		h.ctrl.Tick()
	}

	s := h.ctrl.State()
	if s.CurrentQuestionIndex != 1 {
		t.Errorf("expected question index 1, got %d", s.CurrentQuestionIndex)
	}
	if s.RemainingSlotSeconds != 180 {
		t.Errorf("expected slot reset to 180, got %d", s.RemainingSlotSeconds)
	}
	if s.RemainingTotalSeconds != 720 {
		t.Errorf("expected 720 total seconds left, got %d", s.RemainingTotalSeconds)
	}
}

func TestTotalTimeoutEndsExactlyOnce(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)

	endedAt := -1
	for i := 1; i <= 1000; i++ {
		h.ctrl.Tick()
		if endedAt < 0 && h.ctrl.State().Phase == PhaseEnded {
			endedAt = i
		}
	}

	if endedAt < 0 || endedAt > 900 {
		t.Fatalf("expected session to end by tick 900, ended at %d", endedAt)
	}
	if got := h.handoff.endedCount(); got != 1 {
		t.Fatalf("expected exactly one hand-off, got %d", got)
	}
	if got := h.stream.stopCount(); got != 1 {
		t.Errorf("expected exactly one capture release, got %d", got)
	}
	if reason := h.handoff.ended[0].Reason; reason != ReasonTotalTimeout {
		t.Errorf("expected reason %s, got %s", ReasonTotalTimeout, reason)
	}
}

func TestTotalTimeoutTakesPrecedenceOverSlot(t *testing.T) {
	cfg := Config{
		TotalQuestions:         3,
		TotalTimeBudgetSeconds: 10,
		PerQuestionTimeSeconds: 10,
		QuestionTexts:          []string{"a", "b", "c"},
	}
	h := newHarness(t, cfg)
	h.begin(t)

	for i := 0; i < 10; i++ {
		h.ctrl.Tick()
	}

	s := h.ctrl.State()
	if s.Phase != PhaseEnded {
		t.Fatalf("expected ended, got %s", s.Phase)
	}
	if s.EndReason != ReasonTotalTimeout {
		t.Errorf("expected %s, got %s", ReasonTotalTimeout, s.EndReason)
	}
	if s.CurrentQuestionIndex != 0 {
		t.Errorf("index must not advance on the ending tick, got %d", s.CurrentQuestionIndex)
	}
}

func TestAdvancePastLastQuestionEnds(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)

	for i := 0; i < 4; i++ {
		h.ctrl.AdvanceQuestion()
	}
	s := h.ctrl.State()
	if s.CurrentQuestionIndex != 4 || s.Phase != PhaseRunning {
		t.Fatalf("expected running on last question, got index %d phase %s", s.CurrentQuestionIndex, s.Phase)
	}

	h.ctrl.AdvanceQuestion()
	s = h.ctrl.State()
	if s.Phase != PhaseEnded {
		t.Fatalf("expected ended, got %s", s.Phase)
	}
	if s.CurrentQuestionIndex != 4 {
		t.Errorf("index must stay on the last question, got %d", s.CurrentQuestionIndex)
	}
	if s.EndReason != ReasonLastQuestion {
		t.Errorf("expected %s, got %s", ReasonLastQuestion, s.EndReason)
	}

	h.ctrl.AdvanceQuestion()
	if got := h.handoff.endedCount(); got != 1 {
		t.Errorf("expected one hand-off, got %d", got)
	}
}

func TestManualAdvanceResetsSlot(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)

	for i := 0; i < 42; i++ {
		h.ctrl.Tick()
	}
	h.ctrl.AdvanceQuestion()

	s := h.ctrl.State()
	if s.CurrentQuestionIndex != 1 || s.RemainingSlotSeconds != 180 {
		t.Errorf("expected index 1 with fresh slot, got %d / %d", s.CurrentQuestionIndex, s.RemainingSlotSeconds)
	}
	if s.RemainingTotalSeconds != 858 {
		t.Errorf("manual advance must not touch the total, got %d", s.RemainingTotalSeconds)
	}
}

func TestPauseFreezesBothCounters(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)

	for i := 0; i < 400; i++ {
		h.ctrl.Tick()
	}
	before := h.ctrl.State()
	if before.RemainingTotalSeconds != 500 {
		t.Fatalf("expected 500 seconds left, got %d", before.RemainingTotalSeconds)
	}

	if phase := h.ctrl.TogglePause(); phase != PhasePaused {
		t.Fatalf("expected paused, got %s", phase)
	}
	for i := 0; i < 10; i++ {
		h.ctrl.Tick()
	}
	if phase := h.ctrl.TogglePause(); phase != PhaseRunning {
		t.Fatalf("expected running, got %s", phase)
	}

	after := h.ctrl.State()
	if after.RemainingTotalSeconds != before.RemainingTotalSeconds {
		t.Errorf("total drifted across pause: %d -> %d", before.RemainingTotalSeconds, after.RemainingTotalSeconds)
	}
	if after.RemainingSlotSeconds != before.RemainingSlotSeconds {
		t.Errorf("slot drifted across pause: %d -> %d", before.RemainingSlotSeconds, after.RemainingSlotSeconds)
	}
}

func TestPauseReleasesTimerResource(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)

	first := h.tickers.last()
	h.ctrl.TogglePause()
	if !first.isStopped() {
		t.Fatal("expected the running ticker to be stopped on pause")
	}

	h.ctrl.TogglePause()
	if h.tickers.count() != 2 {
		t.Fatalf("expected a fresh ticker on resume, have %d", h.tickers.count())
	}

	second := h.tickers.last()
	second.ch <- time.Now()
	waitFor(t, "tick from resumed timer", func() bool {
		return h.ctrl.State().RemainingTotalSeconds == 899
	})
}

func TestEndSessionIsIdempotent(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)

	if !h.ctrl.EndSession(ReasonUserEnded) {
		t.Fatal("first EndSession should report it ended the session")
	}
	if h.ctrl.EndSession(ReasonUserEnded) {
		t.Error("second EndSession should be a no-op")
	}
	h.ctrl.Tick()
	h.ctrl.AdvanceQuestion()

	if got := h.stream.stopCount(); got != 1 {
		t.Errorf("expected one capture release, got %d", got)
	}
	if got := h.handoff.endedCount(); got != 1 {
		t.Errorf("expected one hand-off, got %d", got)
	}
	if id := h.handoff.ended[0].SessionID; id != "interview_test" {
		t.Errorf("unexpected session id %q", id)
	}
}

func TestEndSessionOrdering(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())

	var endedState State
	var stopsAtEnded int
	h.ctrl.opts.Observer = func(ev Event) {
		if ev.Type == EventEnded {
			endedState = ev.State
			stopsAtEnded = h.stream.stops
			h.order = append(h.order, "ended")
		}
	}

	h.begin(t)
	timer := h.tickers.last()

	h.ctrl.EndSession(ReasonUserEnded)

	if !timer.isStopped() {
		t.Error("timer must be stopped by EndSession")
	}
	if stopsAtEnded != 1 {
		t.Errorf("ended event seen with %d capture releases, want 1", stopsAtEnded)
	}
	if endedState.CaptureActive || endedState.Phase != PhaseEnded {
		t.Errorf("unexpected ended state %+v", endedState)
	}
	want := []string{"capture_released", "ended", "handoff"}
	if len(h.order) != len(want) {
		t.Fatalf("expected %v, got %v", want, h.order)
	}
	for i := range want {
		if h.order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, h.order)
		}
	}
}

func TestCaptureFailureNeverRuns(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.device.err = errors.New("permission denied")

	var phases []Phase
	h.ctrl.opts.Observer = func(ev Event) { phases = append(phases, ev.State.Phase) }

	err := h.ctrl.Begin(context.Background())
	if !errors.Is(err, ErrCaptureAcquisition) {
		t.Fatalf("expected ErrCaptureAcquisition, got %v", err)
	}

	s := h.ctrl.State()
	if s.Phase != PhaseEnded || s.EndReason != ReasonCaptureFailed {
		t.Errorf("expected aborted session, got %s / %s", s.Phase, s.EndReason)
	}
	for _, p := range phases {
		if p == PhaseRunning {
			t.Fatal("session must never run after capture failure")
		}
	}
	if h.handoff.abortedCount() != 1 || h.handoff.endedCount() != 0 {
		t.Errorf("expected abort hand-off only, got aborted=%d ended=%d", h.handoff.abortedCount(), h.handoff.endedCount())
	}
	if h.tickers.count() != 0 {
		t.Errorf("no timer should be acquired, got %d", h.tickers.count())
	}
}

func TestCaptureFailureAfterCountdownNeverRuns(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.device.err = errors.New("camera busy")

	var mu sync.Mutex
	var seen []EventType
	h.ctrl.opts.Observer = func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	}

	if err := h.ctrl.StartCountdown(context.Background(), 2); err != nil {
		t.Fatalf("StartCountdown: %v", err)
	}
	countdown := h.tickers.last()
	countdown.ch <- time.Now()
	countdown.ch <- time.Now()

	waitFor(t, "abort hand-off", func() bool { return h.handoff.abortedCount() == 1 })

	s := h.ctrl.State()
	if s.Phase != PhaseEnded || s.EndReason != ReasonCaptureFailed {
		t.Errorf("expected aborted session, got %s / %s", s.Phase, s.EndReason)
	}
	if h.handoff.endedCount() != 0 {
		t.Error("an aborted session must not be handed off for evaluation")
	}
	if h.tickers.count() != 1 {
		t.Errorf("only the countdown ticker should exist, got %d", h.tickers.count())
	}

	mu.Lock()
	defer mu.Unlock()
	for _, typ := range seen {
		if typ == EventStarted {
			t.Fatal("started must not be emitted after capture failure")
		}
	}
	if len(seen) == 0 || seen[len(seen)-1] != EventAborted {
		t.Errorf("expected aborted as the last event, got %v", seen)
	}
}

// blockingStream holds every write until release is closed.
type blockingStream struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStream) Write(p []byte) (int, error) {
	close(s.entered)
	<-s.release
	return len(p), nil
}

func (s *blockingStream) Stop() error { return nil }

type streamDevice struct{ stream CaptureStream }

func (d streamDevice) Acquire(context.Context) (CaptureStream, error) { return d.stream, nil }

func TestRecordDoesNotBlockController(t *testing.T) {
	stream := &blockingStream{entered: make(chan struct{}), release: make(chan struct{})}
	ts := &tickers{}
	ctrl := New(fiveQuestionConfig(), Options{Capture: streamDevice{stream}, NewTicker: ts.factory})
	t.Cleanup(ctrl.Close)

	if err := ctrl.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	recorded := make(chan error, 1)
	go func() {
		_, err := ctrl.Record(make([]byte, 1<<20))
		recorded <- err
	}()
	<-stream.entered

	paused := make(chan Phase, 1)
	go func() { paused <- ctrl.TogglePause() }()

	select {
	case phase := <-paused:
		if phase != PhasePaused {
			t.Errorf("expected paused, got %s", phase)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("controller blocked behind a recording write")
	}

	close(stream.release)
	if err := <-recorded; err != nil {
		t.Errorf("Record: %v", err)
	}
}

func TestInvalidConfigEndsImmediately(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero questions", Config{TotalTimeBudgetSeconds: 60, PerQuestionTimeSeconds: 10}},
		{"negative budget", Config{TotalQuestions: 1, TotalTimeBudgetSeconds: -1, PerQuestionTimeSeconds: 10, QuestionTexts: []string{"a"}}},
		{"missing texts", Config{TotalQuestions: 2, TotalTimeBudgetSeconds: 60, PerQuestionTimeSeconds: 10, QuestionTexts: []string{"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.cfg)
			if err := h.ctrl.StartCountdown(context.Background(), 3); err != nil {
				t.Fatalf("StartCountdown: %v", err)
			}

			s := h.ctrl.State()
			if s.Phase != PhaseEnded || s.EndReason != ReasonInvalidConfig {
				t.Errorf("expected ended with %s, got %s / %s", ReasonInvalidConfig, s.Phase, s.EndReason)
			}
			if h.device.acquired != 0 {
				t.Error("capture must not be acquired for an invalid config")
			}
			if h.handoff.endedCount() != 1 {
				t.Errorf("expected one hand-off, got %d", h.handoff.endedCount())
			}
		})
	}
}

func TestCountdownStartsSession(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())

	var mu sync.Mutex
	var countdowns []int
	h.ctrl.opts.Observer = func(ev Event) {
		if ev.Type == EventCountdown {
			mu.Lock()
			countdowns = append(countdowns, ev.State.CountdownRemaining)
			mu.Unlock()
		}
	}

	if err := h.ctrl.StartCountdown(context.Background(), 3); err != nil {
		t.Fatalf("StartCountdown: %v", err)
	}
	if err := h.ctrl.StartCountdown(context.Background(), 3); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	countdown := h.tickers.last()
	for i := 0; i < 3; i++ {
		if h.ctrl.State().Phase != PhaseCountdown {
			t.Fatalf("left countdown early after %d ticks", i)
		}
		countdown.ch <- time.Now()
	}

	waitFor(t, "session to run", func() bool { return h.ctrl.State().Phase == PhaseRunning })

	mu.Lock()
	defer mu.Unlock()
	want := []int{3, 2, 1, 0}
	if len(countdowns) != len(want) {
		t.Fatalf("expected countdown events %v, got %v", want, countdowns)
	}
	for i := range want {
		if countdowns[i] != want[i] {
			t.Fatalf("expected countdown events %v, got %v", want, countdowns)
		}
	}
}

func TestKeysIgnoredDuringCountdown(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())

	if h.ctrl.HandleKey("Enter") || h.ctrl.HandleKey(" ") {
		t.Fatal("keys must be ignored during countdown")
	}

	h.begin(t)
	if !h.ctrl.HandleKey("Enter") {
		t.Fatal("Enter should be bound")
	}
	if idx := h.ctrl.State().CurrentQuestionIndex; idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
	if !h.ctrl.HandleKey("Space") {
		t.Fatal("Space should be bound")
	}
	if phase := h.ctrl.State().Phase; phase != PhasePaused {
		t.Errorf("expected paused, got %s", phase)
	}
	if h.ctrl.HandleKey("Enter") {
		t.Error("Enter must be ignored while paused")
	}
	if idx := h.ctrl.State().CurrentQuestionIndex; idx != 1 {
		t.Errorf("Enter while paused moved to index %d", idx)
	}
	if !h.ctrl.HandleKey(" ") {
		t.Fatal("Space should resume")
	}
	if phase := h.ctrl.State().Phase; phase != PhaseRunning {
		t.Errorf("expected running, got %s", phase)
	}
	if h.ctrl.HandleKey("x") {
		t.Error("unbound key reported as handled")
	}
}

func TestCloseReleasesWithoutHandoff(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	h.begin(t)
	timer := h.tickers.last()

	h.ctrl.Close()
	h.ctrl.Close()

	if !timer.isStopped() {
		t.Error("timer must be stopped on close")
	}
	if got := h.stream.stopCount(); got != 1 {
		t.Errorf("expected one capture release, got %d", got)
	}
	if h.handoff.endedCount() != 0 {
		t.Error("close must not hand off")
	}
	if !h.ctrl.Interrupted() {
		t.Error("expected Interrupted after closing a live session")
	}
	if _, err := h.ctrl.Record([]byte("frame")); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed from Record, got %v", err)
	}
}

func TestContextCancelTearsDown(t *testing.T) {
	h := newHarness(t, fiveQuestionConfig())
	ctx, cancel := context.WithCancel(context.Background())

	if err := h.ctrl.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	cancel()

	waitFor(t, "capture release", func() bool { return h.stream.stopCount() == 1 })
	if !h.ctrl.Interrupted() {
		t.Error("expected Interrupted after context cancellation")
	}
}
