package access

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleReceptionist.Can(CapWriteAppointments))
	assert.False(t, RoleReceptionist.Can(CapWriteRecords))

	assert.True(t, RolePractitioner.Can(CapAttendAppointments))
	assert.True(t, RolePractitioner.Can(CapWriteRecords))
	assert.False(t, RolePractitioner.Can(CapWriteAppointments))

	assert.True(t, RoleManager.Can(CapReadAudit))
	assert.False(t, RoleManager.Can(CapAttendAppointments))

	assert.True(t, RoleManager.Can(CapManageStaff))
	assert.True(t, RoleManager.Can(CapManagePatients))
	assert.True(t, RoleReceptionist.Can(CapManagePatients))
	assert.False(t, RoleReceptionist.Can(CapManageStaff))
	assert.False(t, RolePractitioner.Can(CapManageStaff))

	assert.False(t, Role("ADMIN").Valid())
	assert.False(t, Role("ADMIN").Can(CapReadAppointments))
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")
	p := Principal{UserID: uuid.New(), Role: RolePractitioner}

	token, err := v.Issue(p, time.Hour)
	require.NoError(t, err)

	got, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("test-secret")
	p := Principal{UserID: uuid.New(), Role: RoleManager}

	_, err := v.Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other, err := NewVerifier("other-secret").Issue(p, time.Hour)
	require.NoError(t, err)
	_, err = v.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Issue(p, -time.Minute)
	require.NoError(t, err)
	_, err = v.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole, err := v.Issue(Principal{UserID: uuid.New(), Role: "ADMIN"}, time.Hour)
	require.NoError(t, err)
	_, err = v.Parse(badRole)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsNonUUIDSubject(t *testing.T) {
	v := NewVerifier("test-secret")
	claims := Claims{
		Role: RoleReceptionist,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "frontdesk",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = v.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsUnsignedAlg(t *testing.T) {
	v := NewVerifier("test-secret")
	claims := Claims{
		Role: RoleReceptionist,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
