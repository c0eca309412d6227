package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/08star/my-auth-app/internal/application/dto"
	"github.com/08star/my-auth-app/internal/domain/device"
	"github.com/08star/my-auth-app/pkg/errors"
	"github.com/08star/my-auth-app/pkg/logger"
)

// AccountDirectory answers whether a user may operate on devices.
type AccountDirectory interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// DeviceService is the device authorization registry. Each user has at most
// one verified device; register and verify for the same user are serialized,
// while different users never contend.
type DeviceService struct {
	devices  device.Repository
	accounts AccountDirectory
	locks    *principalLocks
	log      logger.Logger
}

// NewDeviceService creates a new device service.
func NewDeviceService(devices device.Repository, accounts AccountDirectory, log logger.Logger) *DeviceService {
	return &DeviceService{
		devices:  devices,
		accounts: accounts,
		locks:    newPrincipalLocks(),
		log:      log.With(logger.Component("devices")),
	}
}

// ListDevices returns the user's bindings in registration order.
func (s *DeviceService) ListDevices(ctx context.Context, userID uuid.UUID) ([]dto.DeviceResponse, error) {
	if err := s.checkActive(ctx, userID); err != nil {
		return nil, err
	}

	devices, err := s.devices.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	out := make([]dto.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceResponse(d))
	}
	return out, nil
}

// RegisterDevice binds token to the user as pending. Registering an existing
// binding changes nothing and reports created=false.
func (s *DeviceService) RegisterDevice(ctx context.Context, userID uuid.UUID, token string) (*dto.DeviceMutationResponse, bool, error) {
	token, err := device.NormalizeToken(token)
	if err != nil {
		return nil, false, err
	}
	if err := s.checkActive(ctx, userID); err != nil {
		return nil, false, err
	}

	release := s.locks.Lock(userID)
	defer release()

	d, created, err := s.devices.CreateIfAbsent(ctx, userID, token)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to register device")
	}

	msg := dto.MsgDeviceRegistered
	if created {
		msg = dto.MsgDeviceRequested
		s.log.Info("device registered",
			logger.UserID(userID.String()),
			logger.DeviceID(d.Token),
			logger.Verified(d.Verified),
			logger.Created(true),
		)
	}

	return &dto.DeviceMutationResponse{Msg: msg, DeviceID: d.Token, Verified: d.Verified}, created, nil
}

// VerifyDevice makes token the user's only verified device. Any other
// verified device is demoted in the same step; an unknown token is bound
// and verified directly.
func (s *DeviceService) VerifyDevice(ctx context.Context, userID uuid.UUID, token string) (*dto.DeviceMutationResponse, error) {
	token, err := device.NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if err := s.checkActive(ctx, userID); err != nil {
		return nil, err
	}

	release := s.locks.Lock(userID)
	defer release()

	d, created, err := s.devices.VerifyExclusive(ctx, userID, token)
	if err != nil {
		s.log.Error("device verification failed",
			logger.UserID(userID.String()),
			logger.DeviceID(token),
			logger.Error(err),
		)
		return nil, errors.Wrap(err, "failed to verify device")
	}

	s.log.Info("device verified",
		logger.UserID(userID.String()),
		logger.DeviceID(d.Token),
		logger.Verified(true),
		logger.Created(created),
	)

	return &dto.DeviceMutationResponse{Msg: dto.MsgDeviceVerified, DeviceID: d.Token, Verified: true}, nil
}

// DeviceStatus reports one binding. It never creates a record.
func (s *DeviceService) DeviceStatus(ctx context.Context, userID uuid.UUID, token string) (*dto.DeviceResponse, error) {
	token, err := device.NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if err := s.checkActive(ctx, userID); err != nil {
		return nil, err
	}

	d, err := s.devices.Get(ctx, userID, token)
	if err != nil {
		if errors.Is(err, errors.ErrDeviceNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to get device")
	}

	resp := toDeviceResponse(d)
	return &resp, nil
}

func (s *DeviceService) checkActive(ctx context.Context, userID uuid.UUID) error {
	active, err := s.accounts.IsActive(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to check account")
	}
	if !active {
		return errors.ErrAccountDisabled
	}
	return nil
}

func toDeviceResponse(d *device.Device) dto.DeviceResponse {
	st := d.ToStatus()
	return dto.DeviceResponse{DeviceID: st.DeviceID, Verified: st.Verified}
}
