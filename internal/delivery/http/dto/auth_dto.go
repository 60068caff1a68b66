package dto

import (
	"time"

	"libraquant/internal/domain"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *UserOutput `json:"user"`
}

// SessionOutput describes the current session
type SessionOutput struct {
	User      *UserOutput `json:"user"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	DeviceID  string      `json:"device_id"`
}

// NewLoginResponse builds the login response for a session
func NewLoginResponse(session *domain.Session, ttl time.Duration) LoginResponse {
	return LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt(ttl),
		User:      NewUserOutput(session.User),
	}
}
