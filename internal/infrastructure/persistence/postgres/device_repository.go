package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/08star/my-auth-app/internal/domain/device"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

const deviceColumns = `id, user_id, token, verified, created_at, updated_at`

// DeviceRepository implements device.Repository using PostgreSQL.
type DeviceRepository struct {
	db *DB
}

// NewDeviceRepository creates a new PostgreSQL device repository.
func NewDeviceRepository(db *DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// FindByUser returns the user's devices in insertion order.
func (r *DeviceRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*device.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM user_devices WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.Pool.Query(ctx, query, toPgUUID(userID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query devices")
	}
	defer rows.Close()

	devices := make([]*device.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate devices")
	}
	return devices, nil
}

// Get retrieves a single (user, token) binding.
func (r *DeviceRepository) Get(ctx context.Context, userID uuid.UUID, token string) (*device.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM user_devices WHERE user_id = $1 AND token = $2`
	return scanDevice(r.db.Pool.QueryRow(ctx, query, toPgUUID(userID), token))
}

// CreateIfAbsent inserts a pending binding unless one exists. A concurrent
// insert of the same pair resolves to the existing row.
func (r *DeviceRepository) CreateIfAbsent(ctx context.Context, userID uuid.UUID, token string) (*device.Device, bool, error) {
	query := `
		INSERT INTO user_devices (user_id, token, verified, created_at, updated_at)
		VALUES ($1, $2, false, $3, $3)
		ON CONFLICT (user_id, token) DO NOTHING
		RETURNING ` + deviceColumns

	d, err := scanDevice(r.db.Pool.QueryRow(ctx, query, toPgUUID(userID), token, time.Now().UTC()))
	if err == nil {
		return d, true, nil
	}
	if !apperrors.Is(err, apperrors.ErrDeviceNotFound) {
		if isPgForeignKeyViolation(err) {
			return nil, false, apperrors.ErrUserNotFound
		}
		return nil, false, err
	}

	d, err = r.Get(ctx, userID, token)
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}

// VerifyExclusive makes token the user's only verified device in one
// transaction. The user row is locked first so concurrent verifications for
// the same user run one after another.
func (r *DeviceRepository) VerifyExclusive(ctx context.Context, userID uuid.UUID, token string) (*device.Device, bool, error) {
	var (
		result  *device.Device
		created bool
	)

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var locked pgtype.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, toPgUUID(userID)).Scan(&locked)
		if err != nil {
			if isNoRows(err) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Wrap(err, "failed to lock user")
		}

		now := time.Now().UTC()

		_, err = tx.Exec(ctx, `
			UPDATE user_devices
			SET verified = false, updated_at = $3
			WHERE user_id = $1 AND token <> $2 AND verified
		`, toPgUUID(userID), token, now)
		if err != nil {
			return apperrors.Wrap(err, "failed to demote devices")
		}

		// xmax = 0 only for a freshly inserted row
		row := tx.QueryRow(ctx, `
			INSERT INTO user_devices (user_id, token, verified, created_at, updated_at)
			VALUES ($1, $2, true, $3, $3)
			ON CONFLICT (user_id, token) DO UPDATE SET verified = true, updated_at = EXCLUDED.updated_at
			RETURNING `+deviceColumns+`, (xmax = 0)
		`, toPgUUID(userID), token, now)

		var id pgtype.UUID
		d := &device.Device{}
		if err := row.Scan(&d.ID, &id, &d.Token, &d.Verified, &d.CreatedAt, &d.UpdatedAt, &created); err != nil {
			return apperrors.Wrap(err, "failed to verify device")
		}
		d.UserID = fromPgUUID(id)
		result = d
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func scanDevice(row pgx.Row) (*device.Device, error) {
	var (
		userID pgtype.UUID
		d      device.Device
	)
	err := row.Scan(&d.ID, &userID, &d.Token, &d.Verified, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan device")
	}
	d.UserID = fromPgUUID(userID)
	return &d, nil
}
