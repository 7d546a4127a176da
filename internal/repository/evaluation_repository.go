package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/intervue-backend/internal/model"
)

// EvaluationRepository handles interview evaluation data access.
type EvaluationRepository struct {
	pool *pgxpool.Pool
}

// NewEvaluationRepository creates a new EvaluationRepository.
func NewEvaluationRepository(pool *pgxpool.Pool) *EvaluationRepository {
	return &EvaluationRepository{pool: pool}
}

// GetByInterview retrieves the evaluation of an interview.
func (r *EvaluationRepository) GetByInterview(ctx context.Context, interviewID uuid.UUID) (*model.Evaluation, error) {
	e := &model.Evaluation{}
	err := r.pool.QueryRow(ctx,
		`SELECT interview_id, candidate_id, status, expression, logic, knowledge, response,
		        overall_score, self_comment, created_at, updated_at
		 FROM interview_evaluations WHERE interview_id = $1`, interviewID,
	).Scan(&e.InterviewID, &e.CandidateID, &e.Status, &e.Expression, &e.Logic, &e.Knowledge, &e.Response,
		&e.OverallScore, &e.SelfComment, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Submit stores the candidate's self-assessment. It returns pgx.ErrNoRows
// when no evaluation was created for the interview yet.
func (r *EvaluationRepository) Submit(ctx context.Context, e *model.Evaluation) error {
	return r.pool.QueryRow(ctx,
		`UPDATE interview_evaluations
		 SET status = $1, expression = $2, logic = $3, knowledge = $4, response = $5,
		     overall_score = $6, self_comment = $7, updated_at = CURRENT_TIMESTAMP
		 WHERE interview_id = $8
		 RETURNING candidate_id, created_at, updated_at`,
		model.EvaluationStatusSubmitted, e.Expression, e.Logic, e.Knowledge, e.Response,
		e.OverallScore, e.SelfComment, e.InterviewID,
	).Scan(&e.CandidateID, &e.CreatedAt, &e.UpdatedAt)
}
