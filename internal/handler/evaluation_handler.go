package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/intervue-backend/internal/middleware"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/service"
	"github.com/stemsi/intervue-backend/internal/validator"
)

// EvaluationHandler handles post-interview assessment endpoints.
type EvaluationHandler struct {
	evaluationService *service.EvaluationService
}

// NewEvaluationHandler creates a new EvaluationHandler.
func NewEvaluationHandler(evaluationService *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluationService: evaluationService}
}

// GetEvaluation godoc
// GET /api/v1/interviews/:id/evaluation
// Returns the evaluation created when the interview ended.
func (h *EvaluationHandler) GetEvaluation(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	e, err := h.evaluationService.Get(c.Request.Context(), id, claims.CandidateID)
	if err != nil {
		failInterview(c, err)
		return
	}

	response.Success(c, http.StatusOK, e)
}

// SubmitEvaluation godoc
// PUT /api/v1/interviews/:id/evaluation
// Stores the candidate's self-assessment. Scores are 0-5 in steps of 0.5.
func (h *EvaluationHandler) SubmitEvaluation(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitEvaluationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	e, err := h.evaluationService.Submit(c.Request.Context(), id, claims.CandidateID, req)
	if err != nil {
		failInterview(c, err)
		return
	}

	response.Success(c, http.StatusOK, e)
}
