package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/model"
)

const (
	EvaluationBatchSize    = 50
	EvaluationBatchTimeout = 2 * time.Second
	EvaluationPollTimeout  = 1 * time.Second
)

// EvaluationWorker closes ended interviews and opens their evaluations.
type EvaluationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewEvaluationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *EvaluationWorker {
	return &EvaluationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "evaluation_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *EvaluationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("EvaluationWorker started")

	batch := make([]*model.EndedInterview, 0, EvaluationBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= EvaluationBatchSize || time.Since(lastFlush) >= EvaluationBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flushSafe(shutdownCtx, batch)
			cancel()
			return

		default:
			item, err := w.rdb.BLPop(ctx, EvaluationPollTimeout, config.WorkerKey.PersistEndedInterviewsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			p, err := decodeEnded(item[1])
			if err != nil {
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed payload")
				continue
			}

			batch = append(batch, p)
		}
	}
}

// decodeEnded parses a queue entry and rejects ones that can never persist.
func decodeEnded(raw string) (*model.EndedInterview, error) {
	var p model.EndedInterview
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(p.InterviewID); err != nil {
		return nil, err
	}
	if p.EndedAt.IsZero() {
		p.EndedAt = time.Now().UTC()
	}
	return &p, nil
}

// ----------------------------------------------------------------
// Batch wrapper
// ----------------------------------------------------------------

func (w *EvaluationWorker) flushSafe(ctx context.Context, batch []*model.EndedInterview) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkCloseInterviews(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("bulk close failed, using fallback")

		requeue := make([]*model.EndedInterview, 0)
		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Str("interview_id", p.InterviewID).Msg("persistSingle failed, requeueing")
				requeue = append(requeue, p)
			}
		}
		w.requeue(ctx, requeue)
		return
	}

	w.log.Info().Int("count", len(batch)).Msg("Closed ended interviews")

	// The session configs are no longer needed once the interviews are closed.
	w.bulkClearSessionConfigs(ctx, batch)
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPDATE + INSERT using UNNEST
// ----------------------------------------------------------------

const closeInterviewsSQL = `
	WITH t AS (
		SELECT *
		FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::int[],
			$4::int[],
			$5::timestamptz[]
		) AS u (interview_id, reason, question_reached, elapsed_seconds, ended_at)
	),
	closed AS (
		UPDATE interview_sessions AS s
		SET status = 'ENDED',
		    end_reason = t.reason,
		    question_reached = t.question_reached,
		    elapsed_seconds = t.elapsed_seconds,
		    ended_at = t.ended_at
		FROM t
		WHERE s.id = t.interview_id
		RETURNING s.id, s.candidate_id
	)
	INSERT INTO interview_evaluations (interview_id, candidate_id, status)
	SELECT id, candidate_id, 'PENDING' FROM closed
	ON CONFLICT (interview_id) DO NOTHING
`

func (w *EvaluationWorker) bulkCloseInterviews(ctx context.Context, batch []*model.EndedInterview) error {
	n := len(batch)

	ids := make([]uuid.UUID, 0, n)
	reasons := make([]string, 0, n)
	reached := make([]int, 0, n)
	elapsed := make([]int, 0, n)
	endedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		id, err := uuid.Parse(p.InterviewID)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		reasons = append(reasons, p.Reason)
		reached = append(reached, p.QuestionReached)
		elapsed = append(elapsed, p.ElapsedSeconds)
		endedAts = append(endedAts, p.EndedAt)
	}

	_, err := w.pool.Exec(ctx, closeInterviewsSQL, ids, reasons, reached, elapsed, endedAts)
	return err
}

// ----------------------------------------------------------------
// BULK Redis DEL for cached session configs
// ----------------------------------------------------------------

func (w *EvaluationWorker) bulkClearSessionConfigs(ctx context.Context, batch []*model.EndedInterview) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.InterviewConfigKey(p.InterviewID))
	}

	_, _ = pipe.Exec(ctx)
}

// ----------------------------------------------------------------
// FALLBACK single close
// ----------------------------------------------------------------

func (w *EvaluationWorker) persistSingle(ctx context.Context, p *model.EndedInterview) error {
	id, err := uuid.Parse(p.InterviewID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx, closeInterviewsSQL,
		[]uuid.UUID{id}, []string{p.Reason}, []int{p.QuestionReached}, []int{p.ElapsedSeconds}, []time.Time{p.EndedAt},
	)
	return err
}

func (w *EvaluationWorker) requeue(ctx context.Context, items []*model.EndedInterview) {
	if len(items) == 0 {
		return
	}

	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistEndedInterviewsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue ended interviews. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Back off so a database outage does not spin the loop.
	time.Sleep(2 * time.Second)
}
