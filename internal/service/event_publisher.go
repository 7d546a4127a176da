package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/simulation"
)

var timeNow = time.Now

// EventPublisher relays controller events to SSE subscribers and queues the
// non-tick ones for the interview timeline.
type EventPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(rdb *redis.Client, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends payload, the wire form of ev, to the interview's channel.
func (p *EventPublisher) Publish(ctx context.Context, interviewID string, ev simulation.Event, payload []byte) {
	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.InterviewEventsChannel(interviewID), payload)

	if rec, ok := TimelineEntry(interviewID, ev); ok {
		raw, err := json.Marshal(rec)
		if err == nil {
			pipe.RPush(ctx, config.WorkerKey.PersistInterviewEventsQueue, raw)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn().Err(err).Str("interview_id", interviewID).Str("event", string(ev.Type)).Msg("Failed to publish session event")
	}
}

// TimelineEntry converts ev into a timeline record. Ticks and countdown
// steps are not recorded.
func TimelineEntry(interviewID string, ev simulation.Event) (model.InterviewEvent, bool) {
	switch ev.Type {
	case simulation.EventTick, simulation.EventCountdown:
		return model.InterviewEvent{}, false
	}

	detail := ev.Error
	if detail == "" && ev.State.EndReason != "" {
		detail = string(ev.State.EndReason)
	}

	return model.InterviewEvent{
		InterviewID:           interviewID,
		Type:                  string(ev.Type),
		Phase:                 string(ev.State.Phase),
		QuestionIndex:         ev.State.CurrentQuestionIndex,
		RemainingTotalSeconds: ev.State.RemainingTotalSeconds,
		RemainingSlotSeconds:  ev.State.RemainingSlotSeconds,
		Detail:                detail,
		RecordedAt:            timeNow().UTC(),
	}, true
}
