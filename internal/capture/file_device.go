// Package capture provides the recording sink a session acquires as its
// capture device.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/stemsi/intervue-backend/internal/simulation"
)

// ErrStreamStopped is returned when writing to a released stream.
var ErrStreamStopped = errors.New("capture stream stopped")

// RecordingExt is the container extension of stored recordings.
const RecordingExt = ".webm"

// FileDevice records a session into <Dir>/<Name>.webm.
type FileDevice struct {
	Dir  string
	Name string
}

// NewFileDevice creates a FileDevice for one session.
func NewFileDevice(dir, name string) *FileDevice {
	return &FileDevice{Dir: dir, Name: name}
}

// Path returns where the recording is written.
func (d *FileDevice) Path() string {
	return filepath.Join(d.Dir, d.Name+RecordingExt)
}

// Acquire opens the recording file for append.
func (d *FileDevice) Acquire(ctx context.Context) (simulation.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Name == "" || filepath.Base(d.Name) != d.Name {
		return nil, fmt.Errorf("invalid recording name %q", d.Name)
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}

	f, err := os.OpenFile(d.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	return &FileStream{f: f}, nil
}

// FileStream is an acquired recording. Writes after Stop fail.
type FileStream struct {
	mu      sync.Mutex
	f       *os.File
	written int64
	stopped bool
}

// Write appends a chunk of captured media.
func (s *FileStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, ErrStreamStopped
	}
	n, err := s.f.Write(p)
	s.written += int64(n)
	return n, err
}

// Written returns the number of bytes recorded so far.
func (s *FileStream) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Stop flushes and closes the recording. Subsequent calls are no-ops.
func (s *FileStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("sync recording: %w", err)
	}
	return s.f.Close()
}
