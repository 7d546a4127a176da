package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stemsi/intervue-backend/internal/simulation"
)

func TestFromSimulation(t *testing.T) {
	tests := []struct {
		name       string
		ev         simulation.Event
		wantEvent  Event
		wantReason string
	}{
		{
			name:      "tick carries no reason",
			ev:        simulation.Event{Type: simulation.EventTick, SessionID: "s1", State: simulation.State{Phase: simulation.PhaseRunning}},
			wantEvent: EventTick,
		},
		{
			name:       "ended carries the end reason",
			ev:         simulation.Event{Type: simulation.EventEnded, SessionID: "s1", State: simulation.State{Phase: simulation.PhaseEnded, EndReason: simulation.ReasonLastQuestion}},
			wantEvent:  EventEnded,
			wantReason: string(simulation.ReasonLastQuestion),
		},
		{
			name:       "aborted carries reason and error",
			ev:         simulation.Event{Type: simulation.EventAborted, SessionID: "s1", Error: "denied", State: simulation.State{Phase: simulation.PhaseEnded, EndReason: simulation.ReasonCaptureFailed}},
			wantEvent:  EventAborted,
			wantReason: string(simulation.ReasonCaptureFailed),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromSimulation(tt.ev)
			if got.Event != tt.wantEvent {
				t.Errorf("event = %q, want %q", got.Event, tt.wantEvent)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.SessionID != tt.ev.SessionID {
				t.Errorf("session id = %q, want %q", got.SessionID, tt.ev.SessionID)
			}
		})
	}
}

func TestDragRequestDecode(t *testing.T) {
	raw := []byte(`{"action":"drag_move","x":120,"y":80,"viewport_w":1280}`)

	var env RequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Action != ActionDragMove {
		t.Fatalf("action = %q", env.Action)
	}

	var req DragRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("decode drag: %v", err)
	}
	if req.X != 120 || req.Y != 80 || req.ViewportW != 1280 || req.ViewportH != 0 {
		t.Errorf("unexpected drag request %+v", req)
	}
}
