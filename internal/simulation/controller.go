package simulation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options wires a Controller to its collaborators.
type Options struct {
	Capture CaptureDevice
	Handoff Handoff
	// Observer must not block and must not call back into the controller.
	// Every event except EventEnded is delivered with the controller lock
	// held; EventEnded follows the capture release.
	Observer  func(Event)
	NewTicker TickerFactory
	// SessionID generates the identifier handed to the evaluation
	// collaborator. Defaults to a random UUID.
	SessionID func() string
	KeyMap    KeyMap
	Logger    zerolog.Logger
}

// Controller drives one timed interview session: a countdown, a fixed
// sequence of question slots inside an overall budget, the capture device
// and the hand-off when the session ends.
type Controller struct {
	cfg  Config
	opts Options
	log  zerolog.Logger

	mu             sync.Mutex
	phase          Phase
	index          int
	remainingTotal int
	remainingSlot  int
	countdownLeft  int
	captureActive  bool
	endReason      EndReason
	sessionID      string

	started   bool
	acquiring bool
	closed    bool
	stream    CaptureStream
	countdown *tickLoop
	timer     *tickLoop
	timerGen  uint64

	// life bounds the timer goroutines; handoffCtx outlives it so the
	// hand-off still runs when the caller's context is already done.
	life       context.Context
	handoffCtx context.Context
}

// New creates a controller in PhaseCountdown. The config is not validated
// here; an invalid config ends the session as soon as it is started.
func New(cfg Config, opts Options) *Controller {
	if opts.NewTicker == nil {
		opts.NewTicker = NewRealTicker
	}
	if opts.SessionID == nil {
		opts.SessionID = uuid.NewString
	}
	if opts.KeyMap == (KeyMap{}) {
		opts.KeyMap = DefaultKeyMap
	}

	return &Controller{
		cfg:            cfg,
		opts:           opts,
		log:            opts.Logger.With().Str("component", "session_controller").Logger(),
		phase:          PhaseCountdown,
		remainingTotal: max(cfg.TotalTimeBudgetSeconds, 0),
		remainingSlot:  max(cfg.PerQuestionTimeSeconds, 0),
		countdownLeft:  max(cfg.CountdownSeconds, 0),
	}
}

// Config returns the session configuration.
func (c *Controller) Config() Config { return c.cfg }

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Interrupted reports whether Close tore down a session that had not ended
// on its own.
func (c *Controller) Interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endReason == ReasonDetached
}

// ─── Startup ────────────────────────────────────────────────────────────

// StartCountdown begins the pre-session countdown. When it reaches zero the
// capture device is acquired and the session starts running. It returns
// immediately; acquisition happens on the countdown goroutine.
//
// An invalid config ends the session at once with ReasonInvalidConfig.
func (c *Controller) StartCountdown(ctx context.Context, seconds int) error {
	c.mu.Lock()
	if c.started || c.closed || c.phase != PhaseCountdown {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.bindContextLocked(ctx)

	if err := c.cfg.Validate(); err != nil {
		c.log.Warn().Err(err).Msg("Invalid session config, ending immediately")
		finish := c.endLocked(ReasonInvalidConfig)
		c.mu.Unlock()
		finish()
		return nil
	}

	if seconds <= 0 {
		c.mu.Unlock()
		go c.beginAsync(ctx)
		return nil
	}

	c.countdownLeft = seconds
	loop := newTickLoop(c.opts.NewTicker(time.Second))
	c.countdown = loop
	c.emitLocked(Event{Type: EventCountdown})
	c.mu.Unlock()

	go c.runCountdown(ctx, loop)
	return nil
}

func (c *Controller) runCountdown(ctx context.Context, loop *tickLoop) {
	for {
		select {
		case <-loop.done:
			return
		case <-ctx.Done():
			c.Close()
			return
		case <-loop.ticker.C():
			if c.countdownTick(loop) {
				c.beginAsync(ctx)
				return
			}
		}
	}
}

// countdownTick decrements the countdown and reports whether it reached zero.
func (c *Controller) countdownTick(loop *tickLoop) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.countdown != loop || c.phase != PhaseCountdown {
		return false
	}
	if c.countdownLeft > 0 {
		c.countdownLeft--
	}
	c.emitLocked(Event{Type: EventCountdown})
	if c.countdownLeft > 0 {
		return false
	}
	loop.stop()
	c.countdown = nil
	return true
}

func (c *Controller) beginAsync(ctx context.Context) {
	if err := c.Begin(ctx); err != nil {
		c.log.Debug().Err(err).Msg("Session did not start")
	}
}

// Begin performs the countdown-complete transition: it acquires the capture
// device and moves the session to PhaseRunning, starting its timer. On
// acquisition failure the session is aborted and never runs.
func (c *Controller) Begin(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.phase == PhaseEnded {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.phase != PhaseCountdown || c.acquiring {
		c.mu.Unlock()
		return ErrNotInCountdown
	}
	c.started = true
	c.bindContextLocked(ctx)

	if err := c.cfg.Validate(); err != nil {
		finish := c.endLocked(ReasonInvalidConfig)
		c.mu.Unlock()
		finish()
		return err
	}

	if c.countdown != nil {
		c.countdown.stop()
		c.countdown = nil
	}
	c.countdownLeft = 0
	c.acquiring = true
	device := c.opts.Capture
	c.mu.Unlock()

	var (
		stream CaptureStream
		err    error
	)
	if device == nil {
		err = errNoCaptureDevice
	} else {
		stream, err = device.Acquire(ctx)
	}
	if err != nil {
		c.abort(err)
		return fmt.Errorf("%w: %w", ErrCaptureAcquisition, err)
	}

	c.mu.Lock()
	c.acquiring = false
	if c.closed || c.phase != PhaseCountdown {
		c.mu.Unlock()
		c.release(stream)
		return ErrSessionClosed
	}
	c.stream = stream
	c.captureActive = true
	c.phase = PhaseRunning
	c.startTimerLocked()
	c.emitLocked(Event{Type: EventStarted})
	c.mu.Unlock()

	c.log.Info().
		Int("questions", c.cfg.TotalQuestions).
		Int("budget_seconds", c.cfg.TotalTimeBudgetSeconds).
		Msg("Session running")
	return nil
}

// abort ends a session whose capture device could not be acquired.
func (c *Controller) abort(cause error) {
	c.mu.Lock()
	c.acquiring = false
	if c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseEnded
	c.endReason = ReasonCaptureFailed
	c.stopTimersLocked()
	id := c.sessionIDLocked()
	c.emitLocked(Event{Type: EventAborted, Error: cause.Error()})
	ctx := c.handoffCtx
	c.mu.Unlock()

	c.log.Warn().Err(cause).Str("session_id", id).Msg("Capture acquisition failed, session aborted")
	if c.opts.Handoff != nil {
		c.opts.Handoff.SessionAborted(ctx, id, cause)
	}
}

// ─── Running ────────────────────────────────────────────────────────────

// Tick advances both counters by one second. It is a no-op unless the
// session is running.
func (c *Controller) Tick() {
	c.mu.Lock()
	finish := c.tickLocked()
	c.mu.Unlock()
	finish()
}

func (c *Controller) timerTick(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	finish := c.tickLocked()
	c.mu.Unlock()
	finish()
}

func (c *Controller) tickLocked() func() {
	if c.phase != PhaseRunning {
		return noop
	}

	if c.remainingTotal > 0 {
		c.remainingTotal--
	}
	if c.remainingTotal == 0 {
		return c.endLocked(ReasonTotalTimeout)
	}

	if c.remainingSlot > 0 {
		c.remainingSlot--
	}
	if c.remainingSlot == 0 {
		return c.advanceLocked()
	}

	c.emitLocked(Event{Type: EventTick})
	return noop
}

// AdvanceQuestion moves to the next question, or ends the session when the
// current question is the last one.
func (c *Controller) AdvanceQuestion() {
	c.mu.Lock()
	if c.phase != PhaseRunning && c.phase != PhasePaused {
		c.mu.Unlock()
		return
	}
	finish := c.advanceLocked()
	c.mu.Unlock()
	finish()
}

func (c *Controller) advanceLocked() func() {
	if c.index+1 >= c.cfg.TotalQuestions {
		return c.endLocked(ReasonLastQuestion)
	}
	c.index++
	c.remainingSlot = c.cfg.PerQuestionTimeSeconds
	c.emitLocked(Event{Type: EventQuestion})
	return noop
}

// TogglePause switches between running and paused and returns the new
// phase. The timer is released while paused, so neither counter moves.
func (c *Controller) TogglePause() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseRunning:
		c.phase = PhasePaused
		c.stopTimerLocked()
		c.emitLocked(Event{Type: EventPaused})
	case PhasePaused:
		c.phase = PhaseRunning
		c.startTimerLocked()
		c.emitLocked(Event{Type: EventResumed})
	}
	return c.phase
}

// HandleKey applies the key binding for key. Keys are ignored during the
// countdown and after the session ended, and the advance key is ignored
// while paused. It reports whether key was handled.
func (c *Controller) HandleKey(key string) bool {
	c.mu.Lock()
	phase := c.phase
	c.mu.Unlock()

	if phase == PhaseCountdown || phase == PhaseEnded {
		return false
	}

	switch normalizeKey(key) {
	case normalizeKey(c.opts.KeyMap.Advance):
		if phase == PhasePaused {
			return false
		}
		c.AdvanceQuestion()
		return true
	case normalizeKey(c.opts.KeyMap.TogglePause):
		c.TogglePause()
		return true
	}
	return false
}

// Record appends p to the capture stream. Frames arriving when no stream
// is attached are rejected with ErrSessionClosed. The write happens outside
// the controller lock so large chunks do not hold up ticks.
func (c *Controller) Record(p []byte) (int, error) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	if stream == nil {
		return 0, ErrSessionClosed
	}
	w, ok := stream.(io.Writer)
	if !ok {
		return len(p), nil
	}

	n, err := w.Write(p)
	if err != nil {
		c.mu.Lock()
		detached := c.stream != stream
		c.mu.Unlock()
		if detached {
			return n, ErrSessionClosed
		}
	}
	return n, err
}

// ─── Termination ────────────────────────────────────────────────────────

// EndSession ends the session. Timers stop first, then the capture device
// is released, then the hand-off runs. Calls after the first are no-ops;
// it reports whether this call ended the session.
func (c *Controller) EndSession(reason EndReason) bool {
	c.mu.Lock()
	if c.phase == PhaseEnded {
		c.mu.Unlock()
		return false
	}
	finish := c.endLocked(reason)
	c.mu.Unlock()
	finish()
	return true
}

func (c *Controller) endLocked(reason EndReason) func() {
	if c.phase == PhaseEnded {
		return noop
	}
	c.phase = PhaseEnded
	c.endReason = reason
	c.stopTimersLocked()

	stream := c.stream
	c.stream = nil
	c.captureActive = false

	snap := c.snapshotLocked()
	ev := EndedEvent{
		SessionID:      c.sessionIDLocked(),
		Reason:         reason,
		QuestionIndex:  c.index,
		ElapsedSeconds: max(c.cfg.TotalTimeBudgetSeconds-c.remainingTotal, 0),
		EndedAt:        time.Now(),
		State:          snap,
	}
	observer := c.opts.Observer
	ctx := c.handoffCtx
	if ctx == nil {
		ctx = context.Background()
	}

	// PhaseEnded is final, so the snapshot stays accurate once unlocked.
	return func() {
		c.release(stream)
		if observer != nil {
			observer(Event{Type: EventEnded, SessionID: ev.SessionID, State: snap})
		}
		c.log.Info().
			Str("session_id", ev.SessionID).
			Str("reason", string(reason)).
			Int("question_index", ev.QuestionIndex).
			Msg("Session ended")
		if c.opts.Handoff != nil {
			c.opts.Handoff.SessionEnded(ctx, ev)
		}
	}
}

// Close tears the session down without a hand-off: the countdown and
// timers are cancelled and the capture device is released before it
// returns. Safe to call at any time and more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimersLocked()

	stream := c.stream
	c.stream = nil
	c.captureActive = false
	if c.phase != PhaseEnded {
		c.phase = PhaseEnded
		c.endReason = ReasonDetached
	}
	c.mu.Unlock()

	c.release(stream)
}

// ─── Timer resource ────────────────────────────────────────────────────

func (c *Controller) startTimerLocked() {
	c.stopTimerLocked()
	c.timerGen++
	gen := c.timerGen
	loop := newTickLoop(c.opts.NewTicker(time.Second))
	c.timer = loop

	life := c.life
	if life == nil {
		life = context.Background()
	}
	go c.runTimer(life, loop, gen)
}

func (c *Controller) runTimer(life context.Context, loop *tickLoop, gen uint64) {
	for {
		select {
		case <-loop.done:
			return
		case <-life.Done():
			c.Close()
			return
		case <-loop.ticker.C():
			c.timerTick(gen)
		}
	}
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.stop()
		c.timer = nil
	}
	// Ticks already in flight from a retired loop must not count.
	c.timerGen++
}

func (c *Controller) stopTimersLocked() {
	c.stopTimerLocked()
	if c.countdown != nil {
		c.countdown.stop()
		c.countdown = nil
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────

func (c *Controller) bindContextLocked(ctx context.Context) {
	if c.life == nil {
		c.life = ctx
	}
	if c.handoffCtx == nil {
		c.handoffCtx = context.WithoutCancel(ctx)
	}
}

func (c *Controller) release(stream CaptureStream) {
	if stream == nil {
		return
	}
	if err := stream.Stop(); err != nil {
		c.log.Warn().Err(err).Msg("Capture release failed")
	}
}

func (c *Controller) sessionIDLocked() string {
	if c.sessionID == "" {
		c.sessionID = c.opts.SessionID()
	}
	return c.sessionID
}

func (c *Controller) emitLocked(ev Event) {
	if c.opts.Observer == nil {
		return
	}
	if ev.Type == EventEnded || ev.Type == EventAborted {
		ev.SessionID = c.sessionIDLocked()
	}
	ev.State = c.snapshotLocked()
	c.opts.Observer(ev)
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Phase:                 c.phase,
		CurrentQuestionIndex:  c.index,
		TotalQuestions:        c.cfg.TotalQuestions,
		RemainingTotalSeconds: c.remainingTotal,
		RemainingSlotSeconds:  c.remainingSlot,
		CountdownRemaining:    c.countdownLeft,
		CaptureActive:         c.captureActive,
		EndReason:             c.endReason,
		TotalClock:            FormatClock(c.remainingTotal),
		SlotClock:             FormatClock(c.remainingSlot),
		ProgressPercent:       Progress(c.index, c.cfg.TotalQuestions),
	}
	if c.index >= 0 && c.index < len(c.cfg.QuestionTexts) {
		s.Question = c.cfg.QuestionTexts[c.index]
	}
	return s
}

func noop() {}
