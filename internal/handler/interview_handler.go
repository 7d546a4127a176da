package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/intervue-backend/internal/middleware"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/service"
	"github.com/stemsi/intervue-backend/internal/validator"
)

// InterviewHandler handles interview planning and history endpoints.
type InterviewHandler struct {
	interviewService *service.InterviewService
}

// NewInterviewHandler creates a new InterviewHandler.
func NewInterviewHandler(interviewService *service.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviewService: interviewService}
}

// CreateInterview godoc
// POST /api/v1/interviews
// Draws questions for the requested scope and plans the question slots.
func (h *InterviewHandler) CreateInterview(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateInterviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	iv, err := h.interviewService.Create(c.Request.Context(), claims.CandidateID, req)
	if err != nil {
		failInterview(c, err)
		return
	}

	response.Success(c, http.StatusCreated, iv)
}

// ListInterviews godoc
// GET /api/v1/interviews
// Returns the candidate's interview history.
func (h *InterviewHandler) ListInterviews(c *gin.Context) {
	claims := middleware.GetClaims(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	interviews, pagination, err := h.interviewService.List(
		c.Request.Context(), claims.CandidateID, c.Query("status"), c.Query("sort"), page, perPage,
	)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, interviews, pagination)
}

// GetInterview godoc
// GET /api/v1/interviews/:id
// Returns one interview with its planned questions.
func (h *InterviewHandler) GetInterview(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	iv, err := h.interviewService.Get(c.Request.Context(), id, claims.CandidateID)
	if err != nil {
		failInterview(c, err)
		return
	}

	response.Success(c, http.StatusOK, iv)
}

// GetTimeline godoc
// GET /api/v1/interviews/:id/timeline
// Returns the recorded transitions of the session (start, pauses, questions, end).
func (h *InterviewHandler) GetTimeline(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	events, err := h.interviewService.Timeline(c.Request.Context(), id, claims.CandidateID)
	if err != nil {
		failInterview(c, err)
		return
	}

	response.Success(c, http.StatusOK, events)
}

// DownloadRecording godoc
// GET /api/v1/interviews/:id/recording
// Streams the session recording.
func (h *InterviewHandler) DownloadRecording(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	path, err := h.interviewService.RecordingPath(c.Request.Context(), id, claims.CandidateID)
	if err != nil {
		failInterview(c, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrRecordingUnavailable)
		return
	}

	c.Header("Content-Type", "video/webm")
	c.FileAttachment(path, "interview-"+filepath.Base(path))
}

// failInterview maps interview service errors to responses.
func failInterview(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInterviewNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotOwner)
	case errors.Is(err, service.ErrNotEnoughQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNotEnoughQuestions)
	case errors.Is(err, service.ErrInterviewNotStartable):
		response.Fail(c, http.StatusConflict, response.ErrInterviewNotStartable)
	case errors.Is(err, service.ErrInterviewLive):
		response.Fail(c, http.StatusConflict, response.ErrInterviewLive)
	case errors.Is(err, service.ErrRecordingUnavailable):
		response.Fail(c, http.StatusNotFound, response.ErrRecordingUnavailable)
	case errors.Is(err, service.ErrEvaluationNotReady):
		response.Fail(c, http.StatusConflict, response.ErrEvaluationNotReady)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
