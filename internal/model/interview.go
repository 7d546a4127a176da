package model

import (
	"time"

	"github.com/google/uuid"
)

// InterviewStatus enumerates interview session states.
type InterviewStatus string

const (
	InterviewStatusCreated    InterviewStatus = "CREATED"
	InterviewStatusInProgress InterviewStatus = "IN_PROGRESS"
	InterviewStatusEnded      InterviewStatus = "ENDED"
	InterviewStatusAborted    InterviewStatus = "ABORTED"
	InterviewStatusAbandoned  InterviewStatus = "ABANDONED"
)

// InterviewScope selects where interview questions are drawn from.
type InterviewScope string

const (
	ScopeIndustry InterviewScope = "industry"
	ScopeFavorite InterviewScope = "favorite"
	ScopeCustom   InterviewScope = "custom"
)

// Interview is one simulated interview of a candidate.
type Interview struct {
	ID                 uuid.UUID       `json:"id"`
	CandidateID        int             `json:"candidate_id"`
	Scope              InterviewScope  `json:"scope"`
	Industry           string          `json:"industry,omitempty"`
	Position           string          `json:"position,omitempty"`
	Difficulties       []string        `json:"difficulties"`
	DurationMinutes    int             `json:"duration_minutes"`
	QuestionCount      int             `json:"question_count"`
	PerQuestionSeconds int             `json:"per_question_seconds"`
	QuestionIDs        []uuid.UUID     `json:"question_ids"`
	Questions          []string        `json:"questions"`
	Status             InterviewStatus `json:"status"`
	EndReason          *string         `json:"end_reason,omitempty"`
	QuestionReached    *int            `json:"question_reached,omitempty"`
	ElapsedSeconds     *int            `json:"elapsed_seconds,omitempty"`
	RecordingPath      *string         `json:"-"`
	CreatedAt          time.Time       `json:"created_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	EndedAt            *time.Time      `json:"ended_at,omitempty"`
}

// CreateInterviewRequest is the payload for creating a simulated interview.
type CreateInterviewRequest struct {
	Scope           InterviewScope `json:"scope" binding:"required,oneof=industry favorite custom"`
	Industry        string         `json:"industry" binding:"required_if=Scope industry,max=50"`
	Position        string         `json:"position" binding:"required_if=Scope industry,max=50"`
	Difficulties    []Difficulty   `json:"difficulties" binding:"omitempty,dive,oneof=easy medium hard"`
	QuestionIDs     []uuid.UUID    `json:"question_ids" binding:"required_if=Scope custom,max=50"`
	DurationMinutes int            `json:"duration_minutes" binding:"required,min=1,max=120"`
	QuestionCount   int            `json:"question_count" binding:"required,min=1,max=50"`
}

// EndedInterview is queued for the evaluation worker when a session ends.
type EndedInterview struct {
	InterviewID     string    `json:"interview_id"`
	CandidateID     int       `json:"candidate_id"`
	Reason          string    `json:"reason"`
	QuestionReached int       `json:"question_reached"`
	ElapsedSeconds  int       `json:"elapsed_seconds"`
	EndedAt         time.Time `json:"ended_at"`
}

// InterviewEvent is one controller transition on an interview's timeline.
// Per-second ticks are not recorded.
type InterviewEvent struct {
	InterviewID           string    `json:"interview_id"`
	Type                  string    `json:"type"`
	Phase                 string    `json:"phase"`
	QuestionIndex         int       `json:"question_index"`
	RemainingTotalSeconds int       `json:"remaining_total_seconds"`
	RemainingSlotSeconds  int       `json:"remaining_slot_seconds"`
	Detail                string    `json:"detail,omitempty"`
	RecordedAt            time.Time `json:"recorded_at"`
}
