package device

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for device persistence.
//
// Implementations guarantee that (UserID, Token) is unique and that
// VerifyExclusive leaves at most one verified device per user, applying the
// demotion and promotion as a single atomic unit.
type Repository interface {
	// FindByUser returns every device owned by the user in insertion order.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Device, error)

	// Get retrieves a single device. Returns ErrDeviceNotFound when absent.
	Get(ctx context.Context, userID uuid.UUID, token string) (*Device, error)

	// CreateIfAbsent inserts a pending device unless one already exists for
	// (userID, token). The current record is returned either way; created
	// reports whether this call inserted it.
	CreateIfAbsent(ctx context.Context, userID uuid.UUID, token string) (d *Device, created bool, err error)

	// VerifyExclusive demotes every other device of the user and marks the
	// target verified, creating it when absent.
	VerifyExclusive(ctx context.Context, userID uuid.UUID, token string) (d *Device, created bool, err error)
}
