package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/application/dto"
	"github.com/08star/my-auth-app/internal/infrastructure/crypto"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence/memory"
	"github.com/08star/my-auth-app/pkg/jwt"
	"github.com/08star/my-auth-app/pkg/logger"
)

type testEnv struct {
	store    *memory.Store
	sessions *memory.SessionRegistry
	accounts *AccountService
	devices  *DeviceService
	cfg      *config.Config
}

func testHasher() *crypto.Argon2Hasher {
	return crypto.NewArgon2Hasher(crypto.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.MinPasswordLength = 1
	cfg.JWT = config.JWTConfig{Issuer: "test", Secret: "secret", AccessTokenTTL: time.Hour}

	store := memory.NewStore()
	sessions := memory.NewSessionRegistry(0)
	t.Cleanup(func() { _ = sessions.Close() })

	accounts, err := NewAccountService(
		store.Users(),
		sessions,
		testHasher(),
		jwt.NewManager(cfg.JWT.Issuer, cfg.JWT.Secret, cfg.JWT.AccessTokenTTL),
		cfg,
		logger.Nop(),
	)
	require.NoError(t, err)
	devices := NewDeviceService(store.Devices(), accounts, logger.Nop())

	return &testEnv{store: store, sessions: sessions, accounts: accounts, devices: devices, cfg: cfg}
}

func (e *testEnv) register(t *testing.T, username string) uuid.UUID {
	t.Helper()
	resp, err := e.accounts.Register(context.Background(), &dto.RegisterRequest{Username: username, Password: "pw-" + username})
	require.NoError(t, err)
	return resp.UserID
}
