package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/simulation"
)

func TestPlanSlot(t *testing.T) {
	tests := []struct {
		name     string
		minutes  int
		count    int
		expected int
	}{
		{"even split", 10, 5, 120},
		{"truncates", 7, 3, 140},
		{"floor of one second", 1, 100, 1},
		{"single question gets full budget", 15, 1, 900},
		{"zero questions", 10, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlanSlot(tt.minutes, tt.count); got != tt.expected {
				t.Errorf("PlanSlot(%d, %d) = %d, want %d", tt.minutes, tt.count, got, tt.expected)
			}
		})
	}
}

func TestConfigForBuildsValidConfig(t *testing.T) {
	iv := &model.Interview{
		DurationMinutes:    10,
		QuestionCount:      3,
		PerQuestionSeconds: PlanSlot(10, 3),
		Questions:          []string{"a", "b", "c"},
	}

	cfg := configFor(iv)
	cfg.CountdownSeconds = simulation.DefaultCountdownSeconds
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
	if cfg.TotalTimeBudgetSeconds != 600 || cfg.PerQuestionTimeSeconds != 200 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestOverallScore(t *testing.T) {
	tests := []struct {
		scores   []float64
		expected float64
	}{
		{[]float64{4, 4.5, 3, 5}, 4.1},
		{[]float64{0, 0, 0, 0}, 0},
		{[]float64{5, 5, 5, 5}, 5},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := OverallScore(tt.scores...); got != tt.expected {
			t.Errorf("OverallScore(%v) = %v, want %v", tt.scores, got, tt.expected)
		}
	}
}

func TestEndedPayload(t *testing.T) {
	id := uuid.New()
	endedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))

	p := EndedPayload(id, 9, simulation.EndedEvent{
		SessionID:      id.String(),
		Reason:         simulation.ReasonTotalTimeout,
		QuestionIndex:  2,
		ElapsedSeconds: 600,
		EndedAt:        endedAt,
	})

	if p.InterviewID != id.String() || p.CandidateID != 9 {
		t.Errorf("unexpected identity %+v", p)
	}
	if p.Reason != "TOTAL_TIMEOUT" {
		t.Errorf("reason = %q", p.Reason)
	}
	if p.QuestionReached != 3 {
		t.Errorf("question reached = %d, want 3", p.QuestionReached)
	}
	if p.EndedAt.Location() != time.UTC || !p.EndedAt.Equal(endedAt) {
		t.Errorf("ended at = %v", p.EndedAt)
	}
}
