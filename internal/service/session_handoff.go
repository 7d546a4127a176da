package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/repository"
	"github.com/stemsi/intervue-backend/internal/simulation"
)

// SessionHandoff delivers the outcome of one interview session. Ended
// sessions are queued for the evaluation worker; aborted ones are marked
// immediately.
type SessionHandoff struct {
	interviewID   uuid.UUID
	candidateID   int
	rdb           *redis.Client
	interviewRepo *repository.InterviewRepository
	log           zerolog.Logger
}

// NewSessionHandoff creates the hand-off for one interview.
func NewSessionHandoff(
	interviewID uuid.UUID,
	candidateID int,
	rdb *redis.Client,
	interviewRepo *repository.InterviewRepository,
	log zerolog.Logger,
) *SessionHandoff {
	return &SessionHandoff{
		interviewID:   interviewID,
		candidateID:   candidateID,
		rdb:           rdb,
		interviewRepo: interviewRepo,
		log:           log.With().Str("component", "session_handoff").Str("interview_id", interviewID.String()).Logger(),
	}
}

// SessionEnded queues the ended interview for evaluation.
func (h *SessionHandoff) SessionEnded(ctx context.Context, ev simulation.EndedEvent) {
	payload, err := json.Marshal(EndedPayload(h.interviewID, h.candidateID, ev))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode ended interview")
		return
	}

	if err := h.rdb.RPush(ctx, config.WorkerKey.PersistEndedInterviewsQueue, payload).Err(); err != nil {
		h.log.Error().Err(err).Msg("Failed to queue ended interview")
		return
	}
	h.log.Info().Str("reason", string(ev.Reason)).Msg("Ended interview queued for evaluation")
}

// SessionAborted marks the interview ABORTED so the candidate returns to
// interview creation.
func (h *SessionHandoff) SessionAborted(ctx context.Context, _ string, cause error) {
	h.log.Warn().Err(cause).Msg("Interview aborted before start")
	if err := h.interviewRepo.MarkAborted(ctx, h.interviewID, string(simulation.ReasonCaptureFailed)); err != nil {
		h.log.Error().Err(err).Msg("Failed to mark interview aborted")
	}
}

// EndedPayload builds the evaluation queue entry for an ended session.
// QuestionReached is one-based.
func EndedPayload(interviewID uuid.UUID, candidateID int, ev simulation.EndedEvent) model.EndedInterview {
	return model.EndedInterview{
		InterviewID:     interviewID.String(),
		CandidateID:     candidateID,
		Reason:          string(ev.Reason),
		QuestionReached: ev.QuestionIndex + 1,
		ElapsedSeconds:  ev.ElapsedSeconds,
		EndedAt:         ev.EndedAt.UTC(),
	}
}
