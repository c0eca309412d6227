package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

func TestCreateAndValidate(t *testing.T) {
	m := NewManager("issuer", "secret", time.Hour)
	userID, sessionID := uuid.New(), uuid.New()

	token, expiresAt, err := m.CreateAccessToken(userID, sessionID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)

	gotUser, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)

	gotSession, err := claims.SessionUUID()
	require.NoError(t, err)
	assert.Equal(t, sessionID, gotSession)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _, err := NewManager("issuer", "secret", time.Hour).CreateAccessToken(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = NewManager("issuer", "other", time.Hour).ValidateAccessToken(token)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	token, _, err := NewManager("a", "secret", time.Hour).CreateAccessToken(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = NewManager("b", "secret", time.Hour).ValidateAccessToken(token)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestValidateExpired(t *testing.T) {
	m := NewManager("issuer", "secret", time.Minute)
	token, _, err := m.CreateAccessToken(uuid.New(), uuid.New())
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestValidateGarbage(t *testing.T) {
	_, err := NewManager("issuer", "secret", time.Hour).ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}
