package session

import (
	"context"

	"github.com/google/uuid"
)

// Registry owns the lifecycle of login sessions.
type Registry interface {
	// Create stores a new session until its ExpiresAt.
	Create(ctx context.Context, s *Session) error

	// Lookup returns a live session. Expired or destroyed sessions yield
	// ErrSessionNotFound.
	Lookup(ctx context.Context, id uuid.UUID) (*Session, error)

	// Destroy removes a session. Destroying an unknown session is not an error.
	Destroy(ctx context.Context, id uuid.UUID) error

	// DestroyByUser removes every session of a user and returns how many
	// were live.
	DestroyByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// Close releases resources held by the registry.
	Close() error
}
