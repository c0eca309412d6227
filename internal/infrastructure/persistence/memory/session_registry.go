package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/08star/my-auth-app/internal/domain/session"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

// SessionRegistry is an in-process session.Registry. Expired sessions are
// hidden from Lookup immediately and purged by a background sweep.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
	byUser   map[uuid.UUID]map[uuid.UUID]struct{}
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSessionRegistry starts a registry that sweeps expired sessions every
// interval. A non-positive interval disables the sweep.
func NewSessionRegistry(interval time.Duration) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[uuid.UUID]*session.Session),
		byUser:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if interval > 0 {
		go r.sweepLoop(interval)
	} else {
		close(r.done)
	}
	return r
}

func (r *SessionRegistry) Create(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.sessions[s.ID] = &cp
	set, ok := r.byUser[s.UserID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		r.byUser[s.UserID] = set
	}
	set[s.ID] = struct{}{}
	return nil
}

func (r *SessionRegistry) Lookup(_ context.Context, id uuid.UUID) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.IsExpired(r.now()) {
		return nil, apperrors.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *SessionRegistry) Destroy(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(id)
	return nil
}

func (r *SessionRegistry) DestroyByUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for id := range r.byUser[userID] {
		if s, ok := r.sessions[id]; ok && !s.IsExpired(now) {
			n++
		}
		r.remove(id)
	}
	return n, nil
}

// Close stops the sweep goroutine.
func (r *SessionRegistry) Close() error {
	r.once.Do(func() { close(r.stop) })
	<-r.done
	return nil
}

// Sweep purges expired sessions and returns how many were removed.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for id, s := range r.sessions {
		if s.IsExpired(now) {
			r.remove(id)
			n++
		}
	}
	return n
}

func (r *SessionRegistry) sweepLoop(interval time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// remove must be called with mu held.
func (r *SessionRegistry) remove(id uuid.UUID) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if set := r.byUser[s.UserID]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
}

var _ session.Registry = (*SessionRegistry)(nil)
