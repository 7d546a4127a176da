package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/repository"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/simulation"
)

// Interview errors.
var (
	ErrInterviewNotFound     = errors.New("interview not found")
	ErrNotOwner              = errors.New("interview belongs to another candidate")
	ErrNotEnoughQuestions    = errors.New("no questions match the selected filters")
	ErrInterviewNotStartable = errors.New("interview is not in CREATED status")
	ErrInterviewLive         = errors.New("interview already has a stream attached")
	ErrRecordingUnavailable  = errors.New("no recording for this interview")
)

// interviewConfigTTL bounds how long a session config stays cached.
const interviewConfigTTL = 24 * time.Hour

// liveTTL expires the live marker of a stream whose server died.
const liveTTL = 6 * time.Hour

// InterviewService plans interviews and bridges them to the session controller.
type InterviewService struct {
	interviewRepo *repository.InterviewRepository
	questionRepo  *repository.QuestionRepository
	rdb           *redis.Client
	log           zerolog.Logger
}

// NewInterviewService creates a new InterviewService.
func NewInterviewService(
	interviewRepo *repository.InterviewRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *InterviewService {
	return &InterviewService{
		interviewRepo: interviewRepo,
		questionRepo:  questionRepo,
		rdb:           rdb,
		log:           log.With().Str("component", "interview_service").Logger(),
	}
}

// PlanSlot divides the interview duration evenly across its questions, with
// a floor of one second per slot.
func PlanSlot(durationMinutes, questionCount int) int {
	if questionCount < 1 {
		return 1
	}
	return max(durationMinutes*60/questionCount, 1)
}

// Create draws questions for the request and stores a CREATED interview.
// When fewer questions match than requested, the interview uses those found.
func (s *InterviewService) Create(ctx context.Context, candidateID int, req model.CreateInterviewRequest) (*model.Interview, error) {
	questions, err := s.pickQuestions(ctx, candidateID, req)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNotEnoughQuestions
	}

	difficulties := make([]string, len(req.Difficulties))
	for i, d := range req.Difficulties {
		difficulties[i] = string(d)
	}

	iv := &model.Interview{
		CandidateID:        candidateID,
		Scope:              req.Scope,
		Industry:           req.Industry,
		Position:           req.Position,
		Difficulties:       difficulties,
		DurationMinutes:    req.DurationMinutes,
		QuestionCount:      len(questions),
		PerQuestionSeconds: PlanSlot(req.DurationMinutes, len(questions)),
		QuestionIDs:        make([]uuid.UUID, len(questions)),
		Questions:          make([]string, len(questions)),
	}
	for i, q := range questions {
		iv.QuestionIDs[i] = q.ID
		iv.Questions[i] = q.Title
	}

	if err := s.interviewRepo.Create(ctx, iv); err != nil {
		return nil, fmt.Errorf("create interview: %w", err)
	}

	s.cacheConfig(ctx, iv)
	return iv, nil
}

func (s *InterviewService) pickQuestions(ctx context.Context, candidateID int, req model.CreateInterviewRequest) ([]model.Question, error) {
	switch req.Scope {
	case model.ScopeCustom:
		questions, err := s.questionRepo.GetByIDs(ctx, req.QuestionIDs)
		if err != nil {
			return nil, fmt.Errorf("get custom questions: %w", err)
		}
		if len(questions) > req.QuestionCount {
			questions = questions[:req.QuestionCount]
		}
		return questions, nil

	case model.ScopeFavorite:
		questions, err := s.questionRepo.PickRandom(ctx, model.QuestionFilter{
			Difficulties: req.Difficulties,
			FavoritesOf:  candidateID,
		}, req.QuestionCount)
		if err != nil {
			return nil, fmt.Errorf("pick favorite questions: %w", err)
		}
		return questions, nil

	default:
		questions, err := s.questionRepo.PickRandom(ctx, model.QuestionFilter{
			Industry:     req.Industry,
			Position:     req.Position,
			Difficulties: req.Difficulties,
		}, req.QuestionCount)
		if err != nil {
			return nil, fmt.Errorf("pick questions: %w", err)
		}
		return questions, nil
	}
}

// Get retrieves an interview owned by candidateID.
func (s *InterviewService) Get(ctx context.Context, id uuid.UUID, candidateID int) (*model.Interview, error) {
	iv, err := s.interviewRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInterviewNotFound
		}
		return nil, fmt.Errorf("get interview: %w", err)
	}
	if iv.CandidateID != candidateID {
		return nil, ErrNotOwner
	}
	return iv, nil
}

// List returns a page of the candidate's interview history.
func (s *InterviewService) List(ctx context.Context, candidateID int, status, sort string, page, perPage int) ([]model.Interview, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	interviews, total, err := s.interviewRepo.ListByCandidate(ctx, candidateID, status, sort, page, perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list interviews: %w", err)
	}
	if interviews == nil {
		interviews = []model.Interview{}
	}
	return interviews, response.PaginationFor(page, perPage, total), nil
}

// Attach claims the interview for a stream: it must be owned by candidateID,
// still CREATED, and not attached elsewhere. Release must be called when the
// stream detaches.
func (s *InterviewService) Attach(ctx context.Context, id uuid.UUID, candidateID int) (*model.Interview, error) {
	iv, err := s.Get(ctx, id, candidateID)
	if err != nil {
		return nil, err
	}
	if iv.Status != model.InterviewStatusCreated {
		return nil, ErrInterviewNotStartable
	}

	ok, err := s.rdb.SetNX(ctx, config.CacheKey.InterviewLiveKey(id.String()), candidateID, liveTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("mark live: %w", err)
	}
	if !ok {
		return nil, ErrInterviewLive
	}
	return iv, nil
}

// Release clears the live marker set by Attach.
func (s *InterviewService) Release(ctx context.Context, id uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.InterviewLiveKey(id.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("interview_id", id.String()).Msg("Failed to clear live marker")
	}
}

// MarkStarted records that the session entered RUNNING.
func (s *InterviewService) MarkStarted(ctx context.Context, id uuid.UUID) error {
	ok, err := s.interviewRepo.MarkInProgress(ctx, id)
	if err != nil {
		return fmt.Errorf("mark in progress: %w", err)
	}
	if !ok {
		return ErrInterviewNotStartable
	}
	return nil
}

// Abandon records a stream that detached before the session ended.
func (s *InterviewService) Abandon(ctx context.Context, id uuid.UUID, st simulation.State, cfg simulation.Config) error {
	elapsed := max(cfg.TotalTimeBudgetSeconds-st.RemainingTotalSeconds, 0)
	return s.interviewRepo.MarkAbandoned(ctx, id, st.CurrentQuestionIndex+1, elapsed)
}

// SessionConfig returns the controller configuration of an interview, read
// from Redis with a PostgreSQL fallback.
func (s *InterviewService) SessionConfig(ctx context.Context, iv *model.Interview, countdownSeconds int) simulation.Config {
	var cfg simulation.Config

	data, err := s.rdb.Get(ctx, config.CacheKey.InterviewConfigKey(iv.ID.String())).Bytes()
	if err == nil && json.Unmarshal(data, &cfg) == nil {
		cfg.CountdownSeconds = countdownSeconds
		return cfg
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("interview_id", iv.ID.String()).Msg("Config cache read failed, using database")
	}

	cfg = configFor(iv)
	cfg.CountdownSeconds = countdownSeconds
	return cfg
}

// SetRecording stores the recording location of an interview.
func (s *InterviewService) SetRecording(ctx context.Context, id uuid.UUID, path string) error {
	return s.interviewRepo.SetRecordingPath(ctx, id, path)
}

// RecordingPath returns the recording file of an interview owned by candidateID.
func (s *InterviewService) RecordingPath(ctx context.Context, id uuid.UUID, candidateID int) (string, error) {
	iv, err := s.Get(ctx, id, candidateID)
	if err != nil {
		return "", err
	}
	if iv.RecordingPath == nil || *iv.RecordingPath == "" {
		return "", ErrRecordingUnavailable
	}
	return *iv.RecordingPath, nil
}

func (s *InterviewService) cacheConfig(ctx context.Context, iv *model.Interview) {
	payload, err := json.Marshal(configFor(iv))
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.InterviewConfigKey(iv.ID.String()), payload, interviewConfigTTL).Err(); err != nil {
		// The database fallback in SessionConfig covers a missing entry.
		s.log.Warn().Err(err).Str("interview_id", iv.ID.String()).Msg("Failed to cache session config")
	}
}

func configFor(iv *model.Interview) simulation.Config {
	return simulation.Config{
		TotalQuestions:         iv.QuestionCount,
		TotalTimeBudgetSeconds: iv.DurationMinutes * 60,
		PerQuestionTimeSeconds: iv.PerQuestionSeconds,
		QuestionTexts:          iv.Questions,
	}
}

// Timeline returns the recorded transitions of an interview owned by candidateID.
func (s *InterviewService) Timeline(ctx context.Context, id uuid.UUID, candidateID int) ([]model.InterviewEvent, error) {
	if _, err := s.Get(ctx, id, candidateID); err != nil {
		return nil, err
	}
	events, err := s.interviewRepo.ListEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.InterviewEvent{}
	}
	return events, nil
}

// Handoff returns the session hand-off for an interview.
func (s *InterviewService) Handoff(iv *model.Interview) *SessionHandoff {
	return NewSessionHandoff(iv.ID, iv.CandidateID, s.rdb, s.interviewRepo, s.log)
}
