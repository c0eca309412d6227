package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for user persistence operations.
// This interface is implemented by the infrastructure layer.
type Repository interface {
	// Create persists a new user. Returns ErrUserAlreadyExists when the
	// username is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername retrieves a user by their login handle.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*User, error)

	// UpdatePassword replaces the stored credential verifier.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// SetActive toggles the active flag.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
