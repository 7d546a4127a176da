package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/intervue-backend/internal/simulation"
)

// ErrCaptureDenied is returned when the client refuses or fails to
// acquire its camera and microphone, or never answers.
var ErrCaptureDenied = errors.New("capture denied")

type grant struct {
	ok     bool
	reason string
}

// GatedDevice acquires its inner device only after the remote client
// reports that its own media request succeeded.
type GatedDevice struct {
	inner   simulation.CaptureDevice
	timeout time.Duration
	grants  chan grant
}

// NewGatedDevice wraps inner. A timeout of zero waits until ctx is done.
func NewGatedDevice(inner simulation.CaptureDevice, timeout time.Duration) *GatedDevice {
	return &GatedDevice{
		inner:   inner,
		timeout: timeout,
		grants:  make(chan grant, 1),
	}
}

// Grant records the client's answer. Only the first answer counts; later
// ones are dropped. It never blocks.
func (d *GatedDevice) Grant(ok bool, reason string) {
	select {
	case d.grants <- grant{ok: ok, reason: reason}:
	default:
	}
}

// Acquire waits for the client's answer and then acquires the inner device.
func (d *GatedDevice) Acquire(ctx context.Context) (simulation.CaptureStream, error) {
	var expired <-chan time.Time
	if d.timeout > 0 {
		t := time.NewTimer(d.timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, fmt.Errorf("%w: no answer within %s", ErrCaptureDenied, d.timeout)
	case g := <-d.grants:
		if !g.ok {
			if g.reason == "" {
				g.reason = "permission refused"
			}
			return nil, fmt.Errorf("%w: %s", ErrCaptureDenied, g.reason)
		}
	}

	return d.inner.Acquire(ctx)
}
