package dto

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest represents an account registration request.
type RegisterRequest struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// RegisterResponse represents a successful registration.
type RegisterResponse struct {
	Msg      string    `json:"msg"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries a bearer token bound to a new session.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	SessionID   uuid.UUID `json:"session_id"`
}

// UserResponse is the admin view of an account.
type UserResponse struct {
	UserID    uuid.UUID `json:"user_id" yaml:"user_id"`
	Username  string    `json:"username" yaml:"username"`
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Msg string `json:"msg"`
}
