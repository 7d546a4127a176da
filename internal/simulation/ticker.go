package simulation

import (
	"sync"
	"time"
)

// Ticker is the cadence source behind the countdown and session timers.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// tickLoop is one owned timer: a ticker plus the signal that retires the
// goroutine reading it.
type tickLoop struct {
	ticker Ticker
	done   chan struct{}
	once   sync.Once
}

func newTickLoop(t Ticker) *tickLoop {
	return &tickLoop{ticker: t, done: make(chan struct{})}
}

func (l *tickLoop) stop() {
	l.once.Do(func() {
		l.ticker.Stop()
		close(l.done)
	})
}
