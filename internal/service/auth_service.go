package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/intervue-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionRevoked     = errors.New("session revoked")
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	CandidateID int  `json:"candidate_id"`
	RememberMe  bool `json:"remember_me,omitempty"`
}

// IssuedToken is a signed token and its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService handles password hashing, JWT issuance and token revocation.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// TokenTTL returns how long a token lives for the given login mode.
func (s *AuthService) TokenTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return s.cfg.RememberMeExpiry
	}
	return s.cfg.JWTExpiry
}

// GenerateToken creates a JWT for a candidate and registers it as active in
// Redis. Several devices may hold active tokens at once.
func (s *AuthService) GenerateToken(ctx context.Context, candidateID int, rememberMe bool) (*IssuedToken, error) {
	jti := uuid.New().String()
	now := time.Now()
	ttl := s.TokenTTL(rememberMe)
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(candidateID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		CandidateID: candidateID,
		RememberMe:  rememberMe,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	// Store the token ID with the same expiry as the JWT.
	key := config.CacheKey.CandidateTokenKey(candidateID, jti)
	if err := s.rdb.Set(ctx, key, now.Unix(), ttl).Err(); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	return &IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateSession checks that the token ID is still active in Redis.
func (s *AuthService) ValidateSession(ctx context.Context, candidateID int, jti string) error {
	n, err := s.rdb.Exists(ctx, config.CacheKey.CandidateTokenKey(candidateID, jti)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return ErrSessionRevoked
	}
	return nil
}

// Revoke deactivates a single token (logout).
func (s *AuthService) Revoke(ctx context.Context, candidateID int, jti string) error {
	return s.rdb.Del(ctx, config.CacheKey.CandidateTokenKey(candidateID, jti)).Err()
}
