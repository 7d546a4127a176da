package model

import (
	"time"

	"github.com/google/uuid"
)

// EvaluationStatus tracks whether the candidate has assessed an interview.
type EvaluationStatus string

const (
	EvaluationStatusPending   EvaluationStatus = "PENDING"
	EvaluationStatusSubmitted EvaluationStatus = "SUBMITTED"
)

// Evaluation is the assessment record created when an interview ends.
type Evaluation struct {
	InterviewID  uuid.UUID        `json:"interview_id"`
	CandidateID  int              `json:"candidate_id"`
	Status       EvaluationStatus `json:"status"`
	Expression   *float64         `json:"expression,omitempty"`
	Logic        *float64         `json:"logic,omitempty"`
	Knowledge    *float64         `json:"knowledge,omitempty"`
	Response     *float64         `json:"response,omitempty"`
	OverallScore *float64         `json:"overall_score,omitempty"`
	SelfComment  string           `json:"self_comment"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SubmitEvaluationRequest is the candidate's self-assessment, rated 0-5 in
// half-star steps on each dimension.
type SubmitEvaluationRequest struct {
	Expression  float64 `json:"expression" binding:"min=0,max=5,half_step"`
	Logic       float64 `json:"logic" binding:"min=0,max=5,half_step"`
	Knowledge   float64 `json:"knowledge" binding:"min=0,max=5,half_step"`
	Response    float64 `json:"response" binding:"min=0,max=5,half_step"`
	SelfComment string  `json:"self_comment" binding:"max=2000"`
}
