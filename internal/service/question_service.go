package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/repository"
	"github.com/stemsi/intervue-backend/internal/response"
)

// ErrQuestionNotFound is returned for unknown question IDs.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService exposes the question bank.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// List retrieves a page of questions matching the filter.
func (s *QuestionService) List(ctx context.Context, f model.QuestionFilter, page, perPage int) ([]model.Question, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	questions, total, err := s.questionRepo.List(ctx, f, page, perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, response.PaginationFor(page, perPage, total), nil
}

// GetByID retrieves a question with its favorite flag for candidateID.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID, candidateID int) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id, candidateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// Industries lists the industries of the bank with their positions.
func (s *QuestionService) Industries(ctx context.Context) (map[string][]string, error) {
	return s.questionRepo.ListIndustries(ctx)
}

// SetFavorite bookmarks or un-bookmarks a question.
func (s *QuestionService) SetFavorite(ctx context.Context, candidateID int, id uuid.UUID, favorite bool) error {
	if _, err := s.GetByID(ctx, id, candidateID); err != nil {
		return err
	}
	if favorite {
		return s.questionRepo.AddFavorite(ctx, candidateID, id)
	}
	return s.questionRepo.RemoveFavorite(ctx, candidateID, id)
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
