package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/08star/my-auth-app/internal/domain/session"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRegistry(0)
	defer r.Close()

	userID := uuid.New()
	s := session.NewSession(userID, "127.0.0.1", "test", time.Hour)
	require.NoError(t, r.Create(ctx, s))

	got, err := r.Lookup(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)

	require.NoError(t, r.Destroy(ctx, s.ID))
	_, err = r.Lookup(ctx, s.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	// destroying twice is fine
	assert.NoError(t, r.Destroy(ctx, s.ID))
}

func TestSessionRegistryDestroyByUser(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRegistry(0)
	defer r.Close()

	alice, bob := uuid.New(), uuid.New()
	a1 := session.NewSession(alice, "", "", time.Hour)
	a2 := session.NewSession(alice, "", "", time.Hour)
	b1 := session.NewSession(bob, "", "", time.Hour)
	for _, s := range []*session.Session{a1, a2, b1} {
		require.NoError(t, r.Create(ctx, s))
	}

	n, err := r.DestroyByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = r.Lookup(ctx, a2.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	_, err = r.Lookup(ctx, b1.ID)
	assert.NoError(t, err)
}

func TestSessionRegistryExpiry(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRegistry(0)
	defer r.Close()

	now := time.Now()
	r.now = func() time.Time { return now }

	s := session.NewSession(uuid.New(), "", "", time.Minute)
	require.NoError(t, r.Create(ctx, s))

	now = now.Add(2 * time.Minute)
	_, err := r.Lookup(ctx, s.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 0, r.Sweep())
}

func TestSessionRegistryCloseStopsSweep(t *testing.T) {
	r := NewSessionRegistry(time.Millisecond)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
