package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/simulation"
)

func oneQuestion() simulation.Config {
	return simulation.Config{
		TotalQuestions:         1,
		TotalTimeBudgetSeconds: 60,
		PerQuestionTimeSeconds: 60,
		QuestionTexts:          []string{"Tell me about yourself."},
	}
}

func TestEndOnSignal(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(ctrl *simulation.Controller)
		finished bool
		handoff  bool
	}{
		{
			name:     "running session hands off",
			prepare:  func(*simulation.Controller) {},
			finished: false,
			handoff:  true,
		},
		{
			name:     "torn down by cancellation",
			prepare:  func(ctrl *simulation.Controller) { ctrl.Close() },
			finished: true,
			handoff:  false,
		},
		{
			name:     "already ended",
			prepare:  func(ctrl *simulation.Controller) { ctrl.EndSession(simulation.ReasonLastQuestion) },
			finished: false,
			handoff:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &terminalHandoff{id: uuid.New(), log: zerolog.Nop(), done: make(chan struct{})}
			ctrl := simulation.New(oneQuestion(), simulation.Options{Capture: discardDevice{}, Handoff: h})
			t.Cleanup(ctrl.Close)

			if err := ctrl.Begin(context.Background()); err != nil {
				t.Fatalf("Begin: %v", err)
			}
			tt.prepare(ctrl)

			if got := endOnSignal(ctrl); got != tt.finished {
				t.Errorf("endOnSignal = %v, want %v", got, tt.finished)
			}

			select {
			case <-h.done:
				if !tt.handoff {
					t.Error("unexpected hand-off")
				}
			default:
				if tt.handoff {
					t.Error("expected the hand-off to have run")
				}
			}
		})
	}
}

func TestTerminalHandoffWritesSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	h := &terminalHandoff{id: uuid.New(), summaryFile: path, log: zerolog.Nop(), done: make(chan struct{})}
	ctrl := simulation.New(oneQuestion(), simulation.Options{Capture: discardDevice{}, Handoff: h})
	t.Cleanup(ctrl.Close)

	if err := ctrl.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	ctrl.AdvanceQuestion()
	<-h.done

	if h.err != nil {
		t.Fatalf("hand-off error: %v", h.err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty summary")
	}
}
