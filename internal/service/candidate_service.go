package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/repository"
)

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

// CandidateService handles candidate accounts.
type CandidateService struct {
	candidateRepo *repository.CandidateRepository
	authService   *AuthService
}

// NewCandidateService creates a new CandidateService.
func NewCandidateService(candidateRepo *repository.CandidateRepository, authService *AuthService) *CandidateService {
	return &CandidateService{candidateRepo: candidateRepo, authService: authService}
}

// GetByID retrieves a candidate by ID.
func (s *CandidateService) GetByID(ctx context.Context, id int) (*model.Candidate, error) {
	return s.candidateRepo.GetByID(ctx, id)
}

// Register creates a candidate account with a hashed password.
func (s *CandidateService) Register(ctx context.Context, req model.RegisterRequest) (*model.Candidate, error) {
	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	c := &model.Candidate{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	if err := s.candidateRepo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create candidate: %w", err)
	}
	return c, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *CandidateService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	c, err := s.candidateRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.authService.CheckPassword(c.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	tok, err := s.authService.GenerateToken(ctx, c.ID, req.RememberMe)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &model.LoginResponse{
		Token:     tok.Token,
		ExpiresAt: tok.ExpiresAt,
		Candidate: *c,
	}, nil
}

// UpdateProfile applies the non-empty fields of req.
func (s *CandidateService) UpdateProfile(ctx context.Context, id int, req model.UpdateProfileRequest) (*model.Candidate, error) {
	c, err := s.candidateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		c.Name = name
	}
	if req.TargetPosition != "" {
		c.TargetPosition = strings.TrimSpace(req.TargetPosition)
	}

	if err := s.candidateRepo.UpdateProfile(ctx, c); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return c, nil
}
