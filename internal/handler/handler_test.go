package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/service"
	ws "github.com/stemsi/intervue-backend/internal/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestQuestionFilterFromQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		ok    bool
		check func(t *testing.T, f model.QuestionFilter)
	}{
		{
			name:  "category alias",
			query: "category=IT&position=Backend+Developer",
			ok:    true,
			check: func(t *testing.T, f model.QuestionFilter) {
				if f.Industry != "IT" || f.Position != "Backend Developer" {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
		{
			name:  "industry param",
			query: "industry=Finance",
			ok:    true,
			check: func(t *testing.T, f model.QuestionFilter) {
				if f.Industry != "Finance" {
					t.Errorf("industry = %q", f.Industry)
				}
			},
		},
		{
			name:  "difficulty list",
			query: "difficulty=Easy,%20hard,",
			ok:    true,
			check: func(t *testing.T, f model.QuestionFilter) {
				if len(f.Difficulties) != 2 || f.Difficulties[0] != model.DifficultyEasy || f.Difficulties[1] != model.DifficultyHard {
					t.Errorf("difficulties = %v", f.Difficulties)
				}
			},
		},
		{
			name:  "unknown difficulty",
			query: "difficulty=brutal",
			ok:    false,
		},
		{
			name:  "favorites only",
			query: "favorites=true&q=design",
			ok:    true,
			check: func(t *testing.T, f model.QuestionFilter) {
				if f.FavoritesOf != 9 || f.Favorited != 9 || f.Search != "design" {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/questions?"+tt.query, nil)

			f, ok := questionFilterFromQuery(c, 9)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.check != nil {
				tt.check(t, f)
			}
		})
	}
}

func TestFailInterviewMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{service.ErrInterviewNotFound, http.StatusNotFound, response.ErrNotFound},
		{service.ErrNotOwner, http.StatusForbidden, response.ErrNotOwner},
		{service.ErrNotEnoughQuestions, http.StatusUnprocessableEntity, response.ErrNotEnoughQuestions},
		{service.ErrInterviewNotStartable, http.StatusConflict, response.ErrInterviewNotStartable},
		{fmt.Errorf("attach: %w", service.ErrInterviewLive), http.StatusConflict, response.ErrInterviewLive},
		{service.ErrRecordingUnavailable, http.StatusNotFound, response.ErrRecordingUnavailable},
		{service.ErrEvaluationNotReady, http.StatusConflict, response.ErrEvaluationNotReady},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			failInterview(c, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body response.Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == nil || body.Error.Code != tt.code {
				t.Errorf("code = %+v, want %s", body.Error, tt.code)
			}
		})
	}
}

func TestInterviewStreamRequiresClaims(t *testing.T) {
	h := &WSHandler{}
	r := gin.New()
	r.GET("/ws/v1/interviews/:id/stream", h.InterviewStream)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/v1/interviews/abc/stream", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestStreamSessionDrag(t *testing.T) {
	s := &streamSession{}

	start := s.drag(ws.DragRequest{Action: ws.ActionDragStart, X: 1100, Y: 500, ViewportW: 1280, ViewportH: 720})
	if start.X != 1056 || start.Y != 474 || !start.Dragging {
		t.Fatalf("unexpected start %+v", start)
	}

	moved := s.drag(ws.DragRequest{Action: ws.ActionDragMove, X: 1000, Y: 400})
	if moved.X != 956 || moved.Y != 374 {
		t.Fatalf("unexpected move %+v", moved)
	}

	clamped := s.drag(ws.DragRequest{Action: ws.ActionDragMove, X: -5000, Y: -5000})
	if clamped.X != 0 || clamped.Y != 0 {
		t.Fatalf("expected clamp to origin, got %+v", clamped)
	}

	end := s.drag(ws.DragRequest{Action: ws.ActionDragEnd})
	if end.Dragging || end.Event != ws.EventOverlay {
		t.Fatalf("unexpected end %+v", end)
	}
}

func TestParseMemInfoValue(t *testing.T) {
	if got := parseMemInfoValue("MemTotal:       16384000 kB"); got != 16384000*1024 {
		t.Errorf("got %d", got)
	}
	if got := parseMemInfoValue("garbage"); got != 0 {
		t.Errorf("got %d", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "0m 42s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{50*time.Hour + 5*time.Second, "2d 2h 0m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
