package services

import (
	"sync"

	"github.com/google/uuid"
)

// principalLocks hands out one mutex per user. Entries are reference counted
// and removed once no caller holds or waits on them.
type principalLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*principalLock
}

type principalLock struct {
	mu   sync.Mutex
	refs int
}

func newPrincipalLocks() *principalLocks {
	return &principalLocks{locks: make(map[uuid.UUID]*principalLock)}
}

// Lock blocks until the caller holds id's mutex and returns its release func.
func (p *principalLocks) Lock(id uuid.UUID) func() {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &principalLock{}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, id)
		}
		p.mu.Unlock()
	}
}

func (p *principalLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
