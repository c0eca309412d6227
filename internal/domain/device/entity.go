package device

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

// MaxTokenLength is the longest device token a client may bind.
const MaxTokenLength = 128

// State is the authorization state of a (principal, token) pair.
type State string

const (
	StateAbsent   State = "absent"
	StatePending  State = "pending"
	StateVerified State = "verified"
)

// Device is a candidate binding between a user and a client-supplied
// device token. Ownership is by UserID only; a device never references
// back into the user aggregate.
type Device struct {
	ID        int64 // Store-assigned, increases with insertion order
	UserID    uuid.UUID
	Token     string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDevice creates a pending device record for a user.
func NewDevice(userID uuid.UUID, token string) *Device {
	now := time.Now().UTC()
	return &Device{
		UserID:    userID,
		Token:     token,
		Verified:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// State returns the device's position in the authorization state machine.
func (d *Device) State() State {
	if d == nil {
		return StateAbsent
	}
	if d.Verified {
		return StateVerified
	}
	return StatePending
}

// Verify promotes the device to verified.
func (d *Device) Verify() {
	d.Verified = true
	d.UpdatedAt = time.Now().UTC()
}

// Demote returns a verified device to pending. It is the side effect of a
// sibling being verified.
func (d *Device) Demote() {
	d.Verified = false
	d.UpdatedAt = time.Now().UTC()
}

// Status is the client-visible view of a device record.
type Status struct {
	DeviceID string `json:"device_id"`
	Verified bool   `json:"verified"`
}

// ToStatus converts a Device to its client-visible view.
func (d *Device) ToStatus() Status {
	return Status{
		DeviceID: d.Token,
		Verified: d.Verified,
	}
}

// NormalizeToken trims surrounding whitespace and checks the token can be bound.
func NormalizeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.ErrDeviceIDRequired
	}
	if len(token) > MaxTokenLength {
		return "", apperrors.ErrDeviceIDTooLong
	}
	return token, nil
}
