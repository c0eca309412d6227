package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/08star/my-auth-app/internal/infrastructure/persistence/storetest"
)

// newTestDB connects to the database named by TEST_POSTGRES_DSN and empties
// it. The suites use fixed usernames, so every test starts from clean tables.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE user_devices, users RESTART IDENTITY`)
	require.NoError(t, err)
	return db
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	storetest.RunUserRepository(t, NewUserRepository(db))
}

func TestDeviceRepository(t *testing.T) {
	db := newTestDB(t)
	storetest.RunDeviceRepository(t, NewUserRepository(db), NewDeviceRepository(db))
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Health(context.Background()))
}
