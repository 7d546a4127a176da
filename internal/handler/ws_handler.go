package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/intervue-backend/internal/capture"
	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/middleware"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/service"
	"github.com/stemsi/intervue-backend/internal/simulation"
	ws "github.com/stemsi/intervue-backend/internal/websocket"
)

const (
	// maxFrameBytes bounds one recording chunk or JSON action.
	maxFrameBytes = 8 << 20
	outboxSize    = 256
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  64 << 10,
		WriteBufferSize: 4 << 10,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler runs interview sessions over WebSocket.
type WSHandler struct {
	cfg              *config.Config
	interviewService *service.InterviewService
	publisher        *service.EventPublisher
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	cfg *config.Config,
	interviewService *service.InterviewService,
	publisher *service.EventPublisher,
	log zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		cfg:              cfg,
		interviewService: interviewService,
		publisher:        publisher,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(cfg.AllowedOrigins),
	}
}

// InterviewStream godoc
// WS /ws/v1/interviews/:id/stream
// Upgrades to WebSocket and runs the timed interview session. JSON frames
// carry user actions, binary frames carry recording chunks.
func (h *WSHandler) InterviewStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	interviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	iv, err := h.interviewService.Attach(c.Request.Context(), interviewID, claims.CandidateID)
	if err != nil {
		failInterview(c, err)
		return
	}
	defer h.interviewService.Release(context.Background(), interviewID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	s := h.newStreamSession(conn, iv)
	s.run()
}

// ─── Stream session ─────────────────────────────────────────────────

// interviewLifecycle records session transitions on the interview row.
type interviewLifecycle interface {
	MarkStarted(ctx context.Context, id uuid.UUID) error
	SetRecording(ctx context.Context, id uuid.UUID, path string) error
	Abandon(ctx context.Context, id uuid.UUID, st simulation.State, cfg simulation.Config) error
}

// eventSink relays controller events to other subscribers.
type eventSink interface {
	Publish(ctx context.Context, interviewID string, ev simulation.Event, payload []byte)
}

// streamSession owns one connection and the controller driving it. Only
// the pump goroutine writes to the connection.
type streamSession struct {
	h         *WSHandler
	lifecycle interviewLifecycle
	events    eventSink
	conn      *websocket.Conn
	iv        *model.Interview
	ctrl      *simulation.Controller
	gate      *capture.GatedDevice
	device    *capture.FileDevice
	overlay   *simulation.Overlay
	outbox    chan any
	done      chan struct{}
	log       zerolog.Logger
}

func (h *WSHandler) newStreamSession(conn *websocket.Conn, iv *model.Interview) *streamSession {
	s := &streamSession{
		h:         h,
		lifecycle: h.interviewService,
		events:    h.publisher,
		conn:      conn,
		iv:        iv,
		device:    capture.NewFileDevice(h.cfg.RecordingDir, iv.ID.String()),
		outbox:    make(chan any, outboxSize),
		done:      make(chan struct{}),
		log: h.log.With().
			Int("candidate_id", iv.CandidateID).
			Str("interview_id", iv.ID.String()).
			Logger(),
	}
	s.gate = capture.NewGatedDevice(s.device, h.cfg.CaptureGrantTimeout)
	return s
}

func (s *streamSession) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := s.h.interviewService.SessionConfig(ctx, s.iv, s.h.cfg.CountdownSeconds)
	s.ctrl = simulation.New(cfg, simulation.Options{
		Capture:   s.gate,
		Handoff:   s.h.interviewService.Handoff(s.iv),
		Observer:  s.observe,
		SessionID: s.iv.ID.String,
		Logger:    s.log,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pump(ctx)
	}()

	s.log.Info().Msg("Candidate connected")

	if err := s.ctrl.StartCountdown(ctx, cfg.CountdownSeconds); err != nil {
		s.log.Error().Err(err).Msg("Failed to start countdown")
	}

	s.readLoop()
	s.detach(cfg, &wg)
	s.log.Info().Msg("Candidate disconnected")
}

// detach tears the session down once the stream is gone. Queued events are
// delivered before the abandon is recorded, so a pending start transition
// cannot land after it.
func (s *streamSession) detach(cfg simulation.Config, pump *sync.WaitGroup) {
	s.ctrl.Close()
	close(s.done)
	pump.Wait()

	if s.ctrl.Interrupted() {
		if err := s.lifecycle.Abandon(context.Background(), s.iv.ID, s.ctrl.State(), cfg); err != nil {
			s.log.Error().Err(err).Msg("Failed to mark interview abandoned")
		}
	}
}

// observe runs under the controller lock and must not block.
func (s *streamSession) observe(ev simulation.Event) {
	select {
	case s.outbox <- ev:
	default:
		s.log.Warn().Str("event", string(ev.Type)).Msg("Outbox full, dropping event")
	}
}

// reply queues a direct response to the client.
func (s *streamSession) reply(v any) {
	select {
	case s.outbox <- v:
	case <-s.done:
	}
}

// ─── Reading ────────────────────────────────────────────────────────

func (s *streamSession) readLoop() {
	ws.KeepAlive(s.conn)

	for {
		msgType, data, err := ws.ReadMessage(s.conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			if _, err := s.ctrl.Record(data); err != nil && !errors.Is(err, simulation.ErrSessionClosed) && !errors.Is(err, capture.ErrStreamStopped) {
				s.log.Error().Err(err).Msg("Recording write failed")
			}
			continue
		}

		s.handleAction(data)
	}
}

func (s *streamSession) handleAction(data []byte) {
	var env ws.RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.reply(ws.ErrorResponse{Event: ws.EventError, Error: "invalid JSON"})
		return
	}

	switch env.Action {
	case ws.ActionCapture:
		var req ws.CaptureRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(ws.ErrorResponse{Event: ws.EventError, Error: "invalid capture payload"})
			return
		}
		s.gate.Grant(req.Granted, req.Error)

	case ws.ActionNext:
		s.ctrl.AdvanceQuestion()

	case ws.ActionPause:
		s.ctrl.TogglePause()

	case ws.ActionEnd:
		s.ctrl.EndSession(simulation.ReasonUserEnded)

	case ws.ActionKey:
		var req ws.KeyRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(ws.ErrorResponse{Event: ws.EventError, Error: "invalid key payload"})
			return
		}
		s.ctrl.HandleKey(req.Key)

	case ws.ActionDragStart, ws.ActionDragMove, ws.ActionDragEnd:
		var req ws.DragRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(ws.ErrorResponse{Event: ws.EventError, Error: "invalid drag payload"})
			return
		}
		s.reply(s.drag(req))

	case ws.ActionPing:
		s.reply(ws.PongResponse{Event: ws.EventPong})

	default:
		s.log.Warn().Str("action", string(env.Action)).Msg("Unknown action")
		s.reply(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(env.Action)})
	}
}

// drag applies a preview drag action and returns the clamped position.
func (s *streamSession) drag(req ws.DragRequest) ws.OverlayResponse {
	switch {
	case s.overlay == nil:
		// The first drag reports the viewport the default corner is placed in.
		s.overlay = simulation.NewOverlay(req.ViewportW, req.ViewportH)
	case req.ViewportW > 0 || req.ViewportH > 0:
		s.overlay.Resize(req.ViewportW, req.ViewportH)
	}

	pointer := simulation.Point{X: req.X, Y: req.Y}
	var pos simulation.Point
	switch req.Action {
	case ws.ActionDragStart:
		s.overlay.BeginDrag(pointer)
		pos = s.overlay.Position()
	case ws.ActionDragMove:
		pos = s.overlay.DragTo(pointer)
	default:
		pos = s.overlay.EndDrag()
	}

	return ws.OverlayResponse{Event: ws.EventOverlay, X: pos.X, Y: pos.Y, Dragging: s.overlay.Dragging()}
}

// ─── Writing ────────────────────────────────────────────────────────

// pump is the only writer of the connection. Controller events are also
// relayed to SSE subscribers and the interview timeline.
func (s *streamSession) pump(ctx context.Context) {
	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-s.done:
			s.drain(ctx)
			return

		case <-ping.C:
			if err := ws.WritePing(s.conn); err != nil {
				s.log.Debug().Err(err).Msg("Ping failed")
			}

		case item := <-s.outbox:
			ev, ok := item.(simulation.Event)
			if !ok {
				if err := ws.WriteTyped(s.conn, item); err != nil {
					s.log.Debug().Err(err).Msg("Write failed")
				}
				continue
			}
			s.deliver(ctx, ev)
		}
	}
}

// drain flushes whatever the controller emitted before the stream detached.
func (s *streamSession) drain(ctx context.Context) {
	for {
		select {
		case item := <-s.outbox:
			if ev, ok := item.(simulation.Event); ok {
				s.deliver(ctx, ev)
			}
		default:
			return
		}
	}
}

func (s *streamSession) deliver(ctx context.Context, ev simulation.Event) {
	payload, err := json.Marshal(ws.FromSimulation(ev))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode event")
		return
	}

	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.log.Debug().Err(err).Str("event", string(ev.Type)).Msg("Write failed")
	}
	s.events.Publish(ctx, s.iv.ID.String(), ev, payload)

	switch ev.Type {
	case simulation.EventStarted:
		if err := s.lifecycle.MarkStarted(ctx, s.iv.ID); err != nil {
			s.log.Error().Err(err).Msg("Failed to mark interview started")
		}
		if err := s.lifecycle.SetRecording(ctx, s.iv.ID, s.device.Path()); err != nil {
			s.log.Error().Err(err).Msg("Failed to store recording path")
		}

	case simulation.EventEnded, simulation.EventAborted:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(ev.State.EndReason))
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
}
