package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account (the principal).
// This is the aggregate root for account-related operations.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a new, active user.
// The password must be pre-hashed before calling this constructor.
func NewUser(username, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive reports whether the account may authenticate and own devices.
func (u *User) IsActive() bool {
	return u.Active
}

// SetActive toggles the account's active flag.
func (u *User) SetActive(active bool) {
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
}

// UpdatePassword updates the user's password hash.
func (u *User) UpdatePassword(newPasswordHash string) {
	u.PasswordHash = newPasswordHash
	u.UpdatedAt = time.Now().UTC()
}
