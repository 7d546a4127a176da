package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/intervue-backend/internal/middleware"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/response"
	"github.com/stemsi/intervue-backend/internal/service"
	"github.com/stemsi/intervue-backend/internal/validator"
)

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	authService      *service.AuthService
	candidateService *service.CandidateService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, candidateService *service.CandidateService) *AuthHandler {
	return &AuthHandler{
		authService:      authService,
		candidateService: candidateService,
	}
}

// Register godoc
// POST /api/v1/auth/register
// Creates a candidate account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, err := h.candidateService.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"candidate": candidate})
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password and returns a JWT. remember_me extends its lifetime.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.candidateService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Logout godoc
// POST /api/v1/auth/logout
// Revokes the token used for this request.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.authService.Revoke(c.Request.Context(), claims.CandidateID, claims.ID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetProfile godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated candidate.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)

	candidate, err := h.candidateService.GetByID(c.Request.Context(), claims.CandidateID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidate": candidate})
}

// UpdateProfile godoc
// PUT /api/v1/auth/me
// Updates the candidate's name and target position.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, err := h.candidateService.UpdateProfile(c.Request.Context(), claims.CandidateID, req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidate": candidate})
}
