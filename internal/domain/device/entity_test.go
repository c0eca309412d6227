package device

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

func TestDeviceStateTransitions(t *testing.T) {
	var missing *Device
	assert.Equal(t, StateAbsent, missing.State())

	d := NewDevice(uuid.New(), "A1")
	assert.Equal(t, StatePending, d.State())
	assert.False(t, d.Verified)

	d.Verify()
	assert.Equal(t, StateVerified, d.State())

	d.Demote()
	assert.Equal(t, StatePending, d.State())
}

func TestToStatus(t *testing.T) {
	d := NewDevice(uuid.New(), "A1")
	d.Verify()

	assert.Equal(t, Status{DeviceID: "A1", Verified: true}, d.ToStatus())
}

func TestNormalizeToken(t *testing.T) {
	token, err := NormalizeToken("  0x1a2b3c  ")
	require.NoError(t, err)
	assert.Equal(t, "0x1a2b3c", token)

	_, err = NormalizeToken("")
	assert.ErrorIs(t, err, apperrors.ErrDeviceIDRequired)

	_, err = NormalizeToken("   ")
	assert.ErrorIs(t, err, apperrors.ErrDeviceIDRequired)

	_, err = NormalizeToken(strings.Repeat("x", MaxTokenLength))
	assert.NoError(t, err)

	_, err = NormalizeToken(strings.Repeat("x", MaxTokenLength+1))
	assert.ErrorIs(t, err, apperrors.ErrDeviceIDTooLong)
}
