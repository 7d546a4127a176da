package model

import "time"

// Candidate represents a user preparing for interviews.
type Candidate struct {
	ID             int       `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	TargetPosition string    `json:"target_position"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for creating a candidate account.
type RegisterRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=100"`
	Email           string `json:"email" binding:"required,email,max=255"`
	Password        string `json:"password" binding:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// LoginRequest is the payload for candidate authentication.
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Candidate Candidate `json:"candidate"`
}

// UpdateProfileRequest is the payload for editing the candidate's profile.
type UpdateProfileRequest struct {
	Name           string `json:"name" binding:"omitempty,min=2,max=100"`
	TargetPosition string `json:"target_position" binding:"omitempty,max=100"`
}
