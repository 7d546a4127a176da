package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/repository"
)

// ErrEvaluationNotReady is returned before the evaluation worker has
// created the record for an ended interview.
var ErrEvaluationNotReady = errors.New("evaluation not ready")

// EvaluationService handles post-interview assessments.
type EvaluationService struct {
	evaluationRepo   *repository.EvaluationRepository
	interviewService *InterviewService
}

// NewEvaluationService creates a new EvaluationService.
func NewEvaluationService(evaluationRepo *repository.EvaluationRepository, interviewService *InterviewService) *EvaluationService {
	return &EvaluationService{evaluationRepo: evaluationRepo, interviewService: interviewService}
}

// Get returns the evaluation of an interview owned by candidateID.
func (s *EvaluationService) Get(ctx context.Context, interviewID uuid.UUID, candidateID int) (*model.Evaluation, error) {
	if _, err := s.interviewService.Get(ctx, interviewID, candidateID); err != nil {
		return nil, err
	}

	e, err := s.evaluationRepo.GetByInterview(ctx, interviewID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEvaluationNotReady
		}
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return e, nil
}

// Submit stores the candidate's self-assessment and its overall score.
func (s *EvaluationService) Submit(ctx context.Context, interviewID uuid.UUID, candidateID int, req model.SubmitEvaluationRequest) (*model.Evaluation, error) {
	if _, err := s.interviewService.Get(ctx, interviewID, candidateID); err != nil {
		return nil, err
	}

	overall := OverallScore(req.Expression, req.Logic, req.Knowledge, req.Response)
	e := &model.Evaluation{
		InterviewID:  interviewID,
		Status:       model.EvaluationStatusSubmitted,
		Expression:   &req.Expression,
		Logic:        &req.Logic,
		Knowledge:    &req.Knowledge,
		Response:     &req.Response,
		OverallScore: &overall,
		SelfComment:  strings.TrimSpace(req.SelfComment),
	}

	if err := s.evaluationRepo.Submit(ctx, e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEvaluationNotReady
		}
		return nil, fmt.Errorf("submit evaluation: %w", err)
	}
	return e, nil
}

// OverallScore averages the dimension scores, rounded to one decimal.
func OverallScore(scores ...float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return math.Round(sum/float64(len(scores))*10) / 10
}
