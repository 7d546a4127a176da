package simulation

import "errors"

// Sentinel errors returned by the controller.
var (
	ErrInvalidConfig      = errors.New("invalid session config")
	ErrAlreadyStarted     = errors.New("session already started")
	ErrNotInCountdown     = errors.New("session is not in countdown")
	ErrSessionClosed      = errors.New("session is closed")
	ErrCaptureAcquisition = errors.New("capture device acquisition failed")
	errNoCaptureDevice    = errors.New("no capture device configured")
)
