package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/middleware"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/service"
)

const keepAliveInterval = 30 * time.Second

// EventsHandler relays live session events over Server-Sent Events, so a
// second screen can follow an interview running on another device.
type EventsHandler struct {
	rdb              *redis.Client
	interviewService *service.InterviewService
	log              zerolog.Logger
}

func NewEventsHandler(rdb *redis.Client, interviewService *service.InterviewService, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		rdb:              rdb,
		interviewService: interviewService,
		log:              log.With().Str("component", "events_handler").Logger(),
	}
}

// InterviewEventsSSE godoc
// GET /api/v1/interviews/:id/events
func (h *EventsHandler) InterviewEventsSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)

	interviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	iv, err := h.interviewService.Get(c.Request.Context(), interviewID, claims.CandidateID)
	if err != nil {
		failInterview(c, err)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Initial snapshot of the stored interview.
	h.sendSnapshot(c, iv)

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.InterviewEventsChannel(interviewID.String()))
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Str("interview_id", interviewID.String()).Msg("Subscriber attached to interview events")

	pingPayload, _ := json.Marshal(map[string]string{"event": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("interview_id", interviewID.String()).Msg("Subscriber detached from interview events")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payloads are already the wire JSON of the WebSocket stream.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *EventsHandler) sendSnapshot(c *gin.Context, iv *model.Interview) {
	c.SSEvent("message", map[string]interface{}{
		"event": "snapshot",
		"data": map[string]interface{}{
			"id":                   iv.ID.String(),
			"status":               iv.Status,
			"question_count":       iv.QuestionCount,
			"duration_minutes":     iv.DurationMinutes,
			"per_question_seconds": iv.PerQuestionSeconds,
			"end_reason":           iv.EndReason,
		},
	})
	c.Writer.Flush()
}
