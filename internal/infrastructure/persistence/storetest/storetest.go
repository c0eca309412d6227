// Package storetest holds behaviour checks shared by every user and device
// store driver.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/08star/my-auth-app/internal/domain/device"
	"github.com/08star/my-auth-app/internal/domain/user"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

// RunUserRepository checks a user.Repository implementation.
func RunUserRepository(t *testing.T, repo user.Repository) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		u := user.NewUser("alice", "hash")
		require.NoError(t, repo.Create(ctx, u))

		byName, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byName.ID)
		assert.True(t, byName.Active)

		byID, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := repo.Create(ctx, user.NewUser("alice", "other"))
		assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

		assert.ErrorIs(t, repo.SetActive(ctx, uuid.New(), false), apperrors.ErrUserNotFound)
	})

	t.Run("set active and password", func(t *testing.T) {
		u := user.NewUser("bob", "hash")
		require.NoError(t, repo.Create(ctx, u))

		require.NoError(t, repo.SetActive(ctx, u.ID, false))
		require.NoError(t, repo.UpdatePassword(ctx, u.ID, "rehashed"))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Equal(t, "rehashed", got.PasswordHash)
	})

	t.Run("list", func(t *testing.T) {
		users, err := repo.List(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.Username)
		}
		assert.ElementsMatch(t, []string{"alice", "bob"}, names)
	})
}

// RunDeviceRepository checks a device.Repository implementation. users must
// be backed by the same store.
func RunDeviceRepository(t *testing.T, users user.Repository, devices device.Repository) {
	ctx := context.Background()

	newUser := func(t *testing.T, name string) uuid.UUID {
		u := user.NewUser(name, "hash")
		require.NoError(t, users.Create(ctx, u))
		return u.ID
	}

	t.Run("empty list", func(t *testing.T) {
		id := newUser(t, "empty")
		list, err := devices.FindByUser(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("create if absent is idempotent", func(t *testing.T) {
		id := newUser(t, "idem")

		d, created, err := devices.CreateIfAbsent(ctx, id, "A1")
		require.NoError(t, err)
		assert.True(t, created)
		assert.False(t, d.Verified)

		again, created, err := devices.CreateIfAbsent(ctx, id, "A1")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, d.ID, again.ID)

		list, err := devices.FindByUser(ctx, id)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("create if absent keeps verification", func(t *testing.T) {
		id := newUser(t, "keep")

		_, _, err := devices.VerifyExclusive(ctx, id, "A1")
		require.NoError(t, err)

		d, created, err := devices.CreateIfAbsent(ctx, id, "A1")
		require.NoError(t, err)
		assert.False(t, created)
		assert.True(t, d.Verified)
	})

	t.Run("verify is exclusive", func(t *testing.T) {
		id := newUser(t, "excl")

		for _, tok := range []string{"A1", "A2", "A3"} {
			_, _, err := devices.CreateIfAbsent(ctx, id, tok)
			require.NoError(t, err)
		}

		_, created, err := devices.VerifyExclusive(ctx, id, "A1")
		require.NoError(t, err)
		assert.False(t, created)

		d, _, err := devices.VerifyExclusive(ctx, id, "A2")
		require.NoError(t, err)
		assert.True(t, d.Verified)
		assert.Equal(t, "A2", d.Token)

		list, err := devices.FindByUser(ctx, id)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"A1", "A2", "A3"}, tokens(list))
		assert.Equal(t, []bool{false, true, false}, verifiedFlags(list))
	})

	t.Run("verify auto-creates", func(t *testing.T) {
		id := newUser(t, "auto")

		_, _, err := devices.CreateIfAbsent(ctx, id, "A1")
		require.NoError(t, err)
		_, _, err = devices.VerifyExclusive(ctx, id, "A1")
		require.NoError(t, err)

		d, created, err := devices.VerifyExclusive(ctx, id, "NEW")
		require.NoError(t, err)
		assert.True(t, created)
		assert.True(t, d.Verified)

		old, err := devices.Get(ctx, id, "A1")
		require.NoError(t, err)
		assert.False(t, old.Verified)
	})

	t.Run("users are isolated", func(t *testing.T) {
		alice := newUser(t, "iso-alice")
		bob := newUser(t, "iso-bob")

		_, _, err := devices.VerifyExclusive(ctx, alice, "SHARED")
		require.NoError(t, err)
		_, _, err = devices.VerifyExclusive(ctx, bob, "SHARED")
		require.NoError(t, err)

		a, err := devices.Get(ctx, alice, "SHARED")
		require.NoError(t, err)
		assert.True(t, a.Verified)

		_, err = devices.Get(ctx, bob, "OTHER")
		assert.ErrorIs(t, err, apperrors.ErrDeviceNotFound)
	})

	t.Run("create for unknown user", func(t *testing.T) {
		_, _, err := devices.CreateIfAbsent(ctx, uuid.New(), "A1")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("verify unknown user", func(t *testing.T) {
		_, _, err := devices.VerifyExclusive(ctx, uuid.New(), "A1")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("concurrent verify leaves one verified", func(t *testing.T) {
		id := newUser(t, "race")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, err := devices.VerifyExclusive(ctx, id, fmt.Sprintf("D%d", i))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		list, err := devices.FindByUser(ctx, id)
		require.NoError(t, err)
		assert.Len(t, list, 8)
		assert.Equal(t, 1, countVerified(list))
	})
}

func tokens(list []*device.Device) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.Token
	}
	return out
}

func verifiedFlags(list []*device.Device) []bool {
	out := make([]bool, len(list))
	for i, d := range list {
		out[i] = d.Verified
	}
	return out
}

func countVerified(list []*device.Device) int {
	n := 0
	for _, d := range list {
		if d.Verified {
			n++
		}
	}
	return n
}
