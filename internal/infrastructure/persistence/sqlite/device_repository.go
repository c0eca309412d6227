package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/08star/my-auth-app/internal/domain/device"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

// DeviceRepository implements device.Repository on GORM.
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *DB) *DeviceRepository {
	return &DeviceRepository{db: db.Gorm}
}

// FindByUser returns the user's devices ordered by insertion.
func (r *DeviceRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*device.Device, error) {
	var models []DeviceModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find devices")
	}

	devices := make([]*device.Device, len(models))
	for i := range models {
		devices[i] = fromDeviceModel(&models[i], userID)
	}
	return devices, nil
}

func (r *DeviceRepository) Get(ctx context.Context, userID uuid.UUID, token string) (*device.Device, error) {
	return getDevice(r.db.WithContext(ctx), userID, token)
}

// CreateIfAbsent inserts a pending binding, or returns the existing one.
func (r *DeviceRepository) CreateIfAbsent(ctx context.Context, userID uuid.UUID, token string) (*device.Device, bool, error) {
	now := time.Now().UTC()
	m := &DeviceModel{UserID: userID.String(), Token: token, CreatedAt: now, UpdatedAt: now}

	res := r.db.WithContext(ctx).
		Omit("User").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return nil, false, apperrors.ErrUserNotFound
		}
		return nil, false, apperrors.Wrap(res.Error, "failed to create device")
	}
	if res.RowsAffected == 1 {
		return fromDeviceModel(m, userID), true, nil
	}

	d, err := r.Get(ctx, userID, token)
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}

// VerifyExclusive demotes every other device of the user and promotes token,
// creating it if needed, inside one transaction.
func (r *DeviceRepository) VerifyExclusive(ctx context.Context, userID uuid.UUID, token string) (*device.Device, bool, error) {
	var (
		result  *device.Device
		created bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where("id = ?", userID.String()).Count(&count).Error; err != nil {
			return apperrors.Wrap(err, "failed to load user")
		}
		if count == 0 {
			return apperrors.ErrUserNotFound
		}

		now := time.Now().UTC()

		err := tx.Model(&DeviceModel{}).
			Where("user_id = ? AND token <> ? AND verified = ?", userID.String(), token, true).
			Updates(map[string]any{"verified": false, "updated_at": now}).Error
		if err != nil {
			return apperrors.Wrap(err, "failed to demote devices")
		}

		existing, err := getDevice(tx, userID, token)
		switch {
		case err == nil:
			err = tx.Model(&DeviceModel{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{"verified": true, "updated_at": now}).Error
			if err != nil {
				return apperrors.Wrap(err, "failed to verify device")
			}
			existing.Verified = true
			existing.UpdatedAt = now
			result = existing
		case apperrors.Is(err, apperrors.ErrDeviceNotFound):
			m := &DeviceModel{UserID: userID.String(), Token: token, Verified: true, CreatedAt: now, UpdatedAt: now}
			if err := tx.Omit("User").Create(m).Error; err != nil {
				return apperrors.Wrap(err, "failed to create verified device")
			}
			result = fromDeviceModel(m, userID)
			created = true
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func getDevice(db *gorm.DB, userID uuid.UUID, token string) (*device.Device, error) {
	var m DeviceModel
	err := db.Where("user_id = ? AND token = ?", userID.String(), token).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get device")
	}
	return fromDeviceModel(&m, userID), nil
}

func fromDeviceModel(m *DeviceModel, userID uuid.UUID) *device.Device {
	return &device.Device{
		ID:        m.ID,
		UserID:    userID,
		Token:     m.Token,
		Verified:  m.Verified,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
