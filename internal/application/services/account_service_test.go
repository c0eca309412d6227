package services

import (
	"context"
	"errors"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/08star/my-auth-app/internal/application/dto"
	"github.com/08star/my-auth-app/internal/domain/user"
	"github.com/08star/my-auth-app/internal/infrastructure/crypto"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
	"github.com/08star/my-auth-app/pkg/jwt"
	"github.com/08star/my-auth-app/pkg/logger"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	resp, err := env.accounts.Register(ctx, &dto.RegisterRequest{Username: "  alice ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "user created", resp.Msg)
	assert.Equal(t, "alice", resp.Username)

	_, err = env.accounts.Register(ctx, &dto.RegisterRequest{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)

	stored, err := env.store.Users().GetByID(ctx, resp.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored.PasswordHash)
	assert.True(t, stored.Active)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.cfg.Auth.MinPasswordLength = 4

	cases := []dto.RegisterRequest{
		{Username: "", Password: "pass"},
		{Username: "bob", Password: ""},
		{Username: "ab", Password: "pass"},
		{Username: "bob", Password: "abc"},
	}
	for _, req := range cases {
		_, err := env.accounts.Register(ctx, &req)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "%+v", req)
	}
}

func TestLoginAndValidateToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	resp, err := env.accounts.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "pw-alice"}, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.EqualValues(t, 3600, resp.ExpiresIn)

	sess, err := env.accounts.ValidateToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice, sess.UserID)
	assert.Equal(t, resp.SessionID, sess.ID)
	assert.Equal(t, "test-agent", sess.UserAgent)

	require.NoError(t, env.accounts.Logout(ctx, sess.ID))
	_, err = env.accounts.ValidateToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	_, err := env.accounts.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "wrong"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.accounts.Login(ctx, &dto.LoginRequest{Username: "nobody", Password: "pw"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.accounts.Login(ctx, &dto.LoginRequest{Username: "", Password: "pw"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, env.accounts.SetActive(ctx, alice, false))
	_, err = env.accounts.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "pw-alice"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)

	// a wrong password on a disabled account does not reveal the flag
	_, err = env.accounts.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "wrong"}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestDisablingEndsSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	resp, err := env.accounts.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "pw-alice"}, "", "")
	require.NoError(t, err)

	require.NoError(t, env.accounts.SetActive(ctx, alice, false))
	_, err = env.sessions.Lookup(ctx, resp.SessionID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	_, err = env.accounts.ValidateToken(ctx, resp.AccessToken)
	assert.Error(t, err)
}

func TestValidateTokenRejectsDisabledAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	resp, err := env.accounts.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "pw-alice"}, "", "")
	require.NoError(t, err)

	// flip the flag underneath the service so the session survives
	require.NoError(t, env.store.Users().SetActive(ctx, alice, false))
	_, err = env.accounts.ValidateToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestIsActive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	active, err := env.accounts.IsActive(ctx, alice)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = env.accounts.IsActive(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, active)

	assert.ErrorIs(t, env.accounts.SetActive(ctx, uuid.New(), true), apperrors.ErrUserNotFound)
}

func TestAuthenticateRehashesStaleHash(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	weak := crypto.NewArgon2Hasher(crypto.Argon2Params{Memory: 512, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
	hash, err := weak.Hash("secret")
	require.NoError(t, err)
	u := user.NewUser("legacy", hash)
	require.NoError(t, env.store.Users().Create(ctx, u))

	id, err := env.accounts.Authenticate(ctx, "legacy", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	stored, err := env.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, hash, stored.PasswordHash)

	stale, err := testHasher().NeedsRehash(stored.PasswordHash)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "alice")
	bob := env.register(t, "bob")
	require.NoError(t, env.accounts.SetActive(ctx, bob, false))

	users, err := env.accounts.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	byName := map[string]bool{}
	for _, u := range users {
		byName[u.Username] = u.Active
	}
	assert.Equal(t, map[string]bool{"alice": true, "bob": false}, byName)

	got, err := env.accounts.GetUser(ctx, bob)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error)         { return "", errors.New("no entropy") }
func (failingHasher) Verify(string, string) (bool, error) { return false, nil }
func (failingHasher) NeedsRehash(string) (bool, error)    { return false, nil }

func TestNewAccountServiceFailsWithoutDummyHash(t *testing.T) {
	env := newTestEnv(t)

	accounts, err := NewAccountService(
		env.store.Users(),
		env.sessions,
		failingHasher{},
		jwt.NewManager("test", "secret", time.Hour),
		env.cfg,
		logger.Nop(),
	)
	assert.Error(t, err)
	assert.Nil(t, accounts)
}

func TestValidateTokenRejectsMalformedSessionClaim(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	now := time.Now()
	claims := jwt.AccessTokenClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    env.cfg.JWT.Issuer,
			Subject:   alice.String(),
			ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  gojwt.NewNumericDate(now),
		},
		SessionID: "not-a-uuid",
		Type:      "access",
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(env.cfg.JWT.Secret))
	require.NoError(t, err)

	_, err = env.accounts.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}
