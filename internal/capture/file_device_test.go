package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileDeviceRecordsUntilStopped(t *testing.T) {
	dir := t.TempDir()
	dev := NewFileDevice(filepath.Join(dir, "recordings"), "abc")

	stream, err := dev.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	fs := stream.(*FileStream)

	if _, err := fs.Write([]byte("chunk-1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := fs.Write([]byte("chunk-2")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if fs.Written() != 14 {
		t.Errorf("expected 14 bytes written, got %d", fs.Written())
	}

	if err := fs.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := fs.Stop(); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
	if _, err := fs.Write([]byte("late")); !errors.Is(err, ErrStreamStopped) {
		t.Errorf("expected ErrStreamStopped, got %v", err)
	}

	data, err := os.ReadFile(dev.Path())
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	if string(data) != "chunk-1chunk-2" {
		t.Errorf("unexpected recording contents %q", data)
	}
}

func TestFileDeviceRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewFileDevice(dir, "../escape").Acquire(context.Background()); err == nil {
		t.Error("expected path traversal to be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileDevice(dir, "ok").Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileDevice(filepath.Join(blocker, "sub"), "x").Acquire(context.Background()); err == nil {
		t.Error("expected acquisition to fail when the directory cannot be created")
	}
}
