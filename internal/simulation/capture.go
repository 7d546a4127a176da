package simulation

import "context"

// CaptureDevice acquires the audio/video source recorded during a session.
type CaptureDevice interface {
	Acquire(ctx context.Context) (CaptureStream, error)
}

// CaptureStream is an acquired device handle. Stop releases every track
// and must be safe to call more than once.
type CaptureStream interface {
	Stop() error
}

// Handoff receives the terminal outcome of a session.
type Handoff interface {
	// SessionEnded is called exactly once after timers are stopped and the
	// capture device is released.
	SessionEnded(ctx context.Context, ev EndedEvent)
	// SessionAborted is called when the session could not start.
	SessionAborted(ctx context.Context, sessionID string, err error)
}
