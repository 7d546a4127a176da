package websocket

import "github.com/stemsi/intervue-backend/internal/simulation"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionCapture   Action = "capture"
	ActionNext      Action = "next"
	ActionPause     Action = "pause"
	ActionEnd       Action = "end"
	ActionKey       Action = "key"
	ActionDragStart Action = "drag_start"
	ActionDragMove  Action = "drag_move"
	ActionDragEnd   Action = "drag_end"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// CaptureRequest reports the outcome of the client's camera and microphone
// request.
type CaptureRequest struct {
	Action  Action `json:"action"`
	Granted bool   `json:"granted"`
	Error   string `json:"error,omitempty"`
}

// KeyRequest forwards a keyboard press from the interview page.
type KeyRequest struct {
	Action Action `json:"action"`
	Key    string `json:"key"`
}

// DragRequest carries a pointer position for the camera preview overlay.
// Viewport dimensions are optional and only applied when positive.
type DragRequest struct {
	Action    Action `json:"action"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	ViewportW int    `json:"viewport_w"`
	ViewportH int    `json:"viewport_h"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventCountdown Event = Event(simulation.EventCountdown)
	EventStarted   Event = Event(simulation.EventStarted)
	EventTick      Event = Event(simulation.EventTick)
	EventQuestion  Event = Event(simulation.EventQuestion)
	EventPaused    Event = Event(simulation.EventPaused)
	EventResumed   Event = Event(simulation.EventResumed)
	EventEnded     Event = Event(simulation.EventEnded)
	EventAborted   Event = Event(simulation.EventAborted)
	EventOverlay   Event = "overlay"
	EventPong      Event = "pong"
	EventError     Event = "error"
)

// SessionResponse carries a controller transition and the state after it.
type SessionResponse struct {
	Event     Event            `json:"event"`
	SessionID string           `json:"session_id,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Error     string           `json:"error,omitempty"`
	State     simulation.State `json:"state"`
}

// OverlayResponse reports the clamped preview position.
type OverlayResponse struct {
	Event    Event `json:"event"`
	X        int   `json:"x"`
	Y        int   `json:"y"`
	Dragging bool  `json:"dragging"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// FromSimulation converts a controller event into its wire form.
func FromSimulation(ev simulation.Event) SessionResponse {
	resp := SessionResponse{
		Event:     Event(ev.Type),
		SessionID: ev.SessionID,
		Error:     ev.Error,
		State:     ev.State,
	}
	if ev.Type == simulation.EventEnded || ev.Type == simulation.EventAborted {
		resp.Reason = string(ev.State.EndReason)
	}
	return resp
}
