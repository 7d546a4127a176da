package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/model"
)

const (
	EventBatchSize    = 100
	EventBatchTimeout = 2 * time.Second
	EventPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// EventWorker persists interview timeline events.
type EventWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewEventWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *EventWorker {
	return &EventWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "event_worker").Logger(),
	}
}

func (w *EventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("EventWorker started")

	buffer := make([]*model.InterviewEvent, 0, EventBatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Flush on size or age
		if len(buffer) > 0 {
			if len(buffer) >= EventBatchSize || time.Since(lastFlushTime) >= EventBatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Graceful shutdown
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis
		result, err := w.rdb.BLPop(ctx, EventPollTimeout, config.WorkerKey.PersistInterviewEventsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var ev model.InterviewEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
			// Malformed entries cannot be retried.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &ev)
	}
}

// flushSafe attempts a bulk copy, then row-by-row inserts, then requeues.
func (w *EventWorker) flushSafe(ctx context.Context, batch []*model.InterviewEvent) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *EventWorker) bulkInsert(ctx context.Context, batch []*model.InterviewEvent) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, e := range batch {
		id, err := uuid.Parse(e.InterviewID)
		if err != nil {
			// The fallback drops the bad row individually.
			return err
		}
		rows = append(rows, eventRow(id, e))
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"interview_events"},
		[]string{"interview_id", "event_type", "phase", "question_index", "remaining_total_seconds", "remaining_slot_seconds", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *EventWorker) fallbackInsert(ctx context.Context, batch []*model.InterviewEvent) {
	requeueList := make([]*model.InterviewEvent, 0)

	for _, e := range batch {
		id, err := uuid.Parse(e.InterviewID)
		if err != nil {
			w.log.Error().Str("interview_id", e.InterviewID).Msg("Dropping event with invalid UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO interview_events
				(interview_id, event_type, phase, question_index, remaining_total_seconds, remaining_slot_seconds, detail, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			eventRow(id, e)...,
		)
		if err != nil {
			w.log.Error().Err(err).Str("interview_id", e.InterviewID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *EventWorker) requeue(ctx context.Context, items []*model.InterviewEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.PersistInterviewEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue events to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed events back to Redis")
	time.Sleep(2 * time.Second)
}

func (w *EventWorker) shutdown(buffer []*model.InterviewEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func eventRow(id uuid.UUID, e *model.InterviewEvent) []interface{} {
	recordedAt := e.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	return []interface{}{
		id, e.Type, e.Phase, e.QuestionIndex, e.RemainingTotalSeconds, e.RemainingSlotSeconds, e.Detail, recordedAt,
	}
}
