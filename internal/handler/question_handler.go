package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/intervue-backend/internal/middleware"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/service"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/questions
// Filters: category (industry), position, difficulty (comma separated), q, favorites=true.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	filter, ok := questionFilterFromQuery(c, claims.CandidateID)
	if !ok {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"difficulty": "difficulty must be one of easy, medium, hard",
		})
		return
	}

	questions, pagination, err := h.questionService.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, questions, pagination)
}

// ListIndustries godoc
// GET /api/v1/questions/industries
// Returns the industries of the bank with their positions.
func (h *QuestionHandler) ListIndustries(c *gin.Context) {
	industries, err := h.questionService.Industries(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, industries)
}

// GetQuestion godoc
// GET /api/v1/questions/:id
// Returns one question with its sample answer.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	q, err := h.questionService.GetByID(c.Request.Context(), id, claims.CandidateID)
	if err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, q)
}

// AddFavorite godoc
// POST /api/v1/questions/:id/favorite
func (h *QuestionHandler) AddFavorite(c *gin.Context) {
	h.setFavorite(c, true)
}

// RemoveFavorite godoc
// DELETE /api/v1/questions/:id/favorite
func (h *QuestionHandler) RemoveFavorite(c *gin.Context) {
	h.setFavorite(c, false)
}

func (h *QuestionHandler) setFavorite(c *gin.Context, favorite bool) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.SetFavorite(c.Request.Context(), claims.CandidateID, id, favorite); err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": id, "is_favorited": favorite})
}

// questionFilterFromQuery reads list filters. It reports false on an
// unknown difficulty.
func questionFilterFromQuery(c *gin.Context, candidateID int) (model.QuestionFilter, bool) {
	f := model.QuestionFilter{
		Industry:  strings.TrimSpace(c.Query("category")),
		Position:  strings.TrimSpace(c.Query("position")),
		Search:    strings.TrimSpace(c.Query("q")),
		Favorited: candidateID,
	}
	if f.Industry == "" {
		f.Industry = strings.TrimSpace(c.Query("industry"))
	}
	if c.Query("favorites") == "true" {
		f.FavoritesOf = candidateID
	}

	if raw := c.Query("difficulty"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			d := model.Difficulty(strings.ToLower(strings.TrimSpace(part)))
			switch d {
			case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
				f.Difficulties = append(f.Difficulties, d)
			case "":
			default:
				return f, false
			}
		}
	}
	return f, true
}
