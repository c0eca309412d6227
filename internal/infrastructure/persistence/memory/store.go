// Package memory provides process-local user, device and session stores.
// Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/08star/my-auth-app/internal/domain/device"
	"github.com/08star/my-auth-app/internal/domain/user"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

type deviceKey struct {
	userID uuid.UUID
	token  string
}

// Store keeps users and devices behind one lock so a device write can check
// its owner exists.
type Store struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*user.User
	names   map[string]uuid.UUID
	devices map[deviceKey]*device.Device
	byUser  map[uuid.UUID][]*device.Device
	nextID  int64
}

func NewStore() *Store {
	return &Store{
		users:   make(map[uuid.UUID]*user.User),
		names:   make(map[string]uuid.UUID),
		devices: make(map[deviceKey]*device.Device),
		byUser:  make(map[uuid.UUID][]*device.Device),
	}
}

// Users returns the store's user.Repository view.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Devices returns the store's device.Repository view.
func (s *Store) Devices() *DeviceRepository { return &DeviceRepository{s: s} }

func (s *Store) Health(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// UserRepository implements user.Repository in memory.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.names[u.Username]; taken {
		return apperrors.ErrUserAlreadyExists
	}
	cp := *u
	r.s.users[u.ID] = &cp
	r.s.names[u.Username] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.names[username]
	r.s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) List(context.Context) ([]*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.UpdatePassword(passwordHash)
	return nil
}

func (r *UserRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.SetActive(active)
	return nil
}

// DeviceRepository implements device.Repository in memory.
type DeviceRepository struct {
	s *Store
}

func (r *DeviceRepository) FindByUser(_ context.Context, userID uuid.UUID) ([]*device.Device, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := r.s.byUser[userID]
	out := make([]*device.Device, len(list))
	for i, d := range list {
		cp := *d
		out[i] = &cp
	}
	return out, nil
}

func (r *DeviceRepository) Get(_ context.Context, userID uuid.UUID, token string) (*device.Device, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.devices[deviceKey{userID, token}]
	if !ok {
		return nil, apperrors.ErrDeviceNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *DeviceRepository) CreateIfAbsent(_ context.Context, userID uuid.UUID, token string) (*device.Device, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return nil, false, apperrors.ErrUserNotFound
	}
	if d, ok := r.s.devices[deviceKey{userID, token}]; ok {
		cp := *d
		return &cp, false, nil
	}
	d := r.s.insert(userID, token)
	cp := *d
	return &cp, true, nil
}

// VerifyExclusive demotes and promotes under the write lock, so readers
// never observe two verified devices or none mid-switch.
func (r *DeviceRepository) VerifyExclusive(_ context.Context, userID uuid.UUID, token string) (*device.Device, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return nil, false, apperrors.ErrUserNotFound
	}

	for _, d := range r.s.byUser[userID] {
		if d.Verified && d.Token != token {
			d.Demote()
		}
	}

	target, exists := r.s.devices[deviceKey{userID, token}]
	if !exists {
		target = r.s.insert(userID, token)
	}
	target.Verify()

	cp := *target
	return &cp, !exists, nil
}

// insert must be called with mu held.
func (s *Store) insert(userID uuid.UUID, token string) *device.Device {
	s.nextID++
	d := device.NewDevice(userID, token)
	d.ID = s.nextID
	s.devices[deviceKey{userID, token}] = d
	s.byUser[userID] = append(s.byUser[userID], d)
	return d
}

var (
	_ user.Repository   = (*UserRepository)(nil)
	_ device.Repository = (*DeviceRepository)(nil)
)
