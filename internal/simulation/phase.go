package simulation

import "time"

// Phase enumerates the lifecycle states of a session.
type Phase string

const (
	PhaseCountdown Phase = "COUNTDOWN"
	PhaseRunning   Phase = "RUNNING"
	PhasePaused    Phase = "PAUSED"
	PhaseEnded     Phase = "ENDED"
)

// EndReason records what moved a session into PhaseEnded.
type EndReason string

const (
	ReasonTotalTimeout  EndReason = "TOTAL_TIMEOUT"
	ReasonLastQuestion  EndReason = "LAST_QUESTION"
	ReasonUserEnded     EndReason = "USER_ENDED"
	ReasonInvalidConfig EndReason = "INVALID_CONFIG"
	ReasonCaptureFailed EndReason = "CAPTURE_FAILED"
	ReasonDetached      EndReason = "DETACHED"
)

// EventType identifies an observer notification.
type EventType string

const (
	EventCountdown EventType = "countdown"
	EventStarted   EventType = "started"
	EventTick      EventType = "tick"
	EventQuestion  EventType = "question"
	EventPaused    EventType = "paused"
	EventResumed   EventType = "resumed"
	EventEnded     EventType = "ended"
	EventAborted   EventType = "aborted"
)

// State is a point-in-time snapshot of a session.
type State struct {
	Phase                 Phase     `json:"phase"`
	CurrentQuestionIndex  int       `json:"current_question_index"`
	TotalQuestions        int       `json:"total_questions"`
	Question              string    `json:"question"`
	RemainingTotalSeconds int       `json:"remaining_total_seconds"`
	RemainingSlotSeconds  int       `json:"remaining_slot_seconds"`
	CountdownRemaining    int       `json:"countdown_remaining"`
	CaptureActive         bool      `json:"capture_active"`
	EndReason             EndReason `json:"end_reason,omitempty"`
	TotalClock            string    `json:"total_clock"`
	SlotClock             string    `json:"slot_clock"`
	ProgressPercent       float64   `json:"progress_percent"`
}

// Event is delivered to the observer on every transition.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	State     State     `json:"state"`
}

// EndedEvent is handed to the evaluation collaborator once per session.
type EndedEvent struct {
	SessionID      string
	Reason         EndReason
	QuestionIndex  int
	ElapsedSeconds int
	EndedAt        time.Time
	State          State
}
