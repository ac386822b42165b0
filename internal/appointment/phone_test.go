package appointment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone(strPtr("9 8765 4321"))
	require.NoError(t, err)
	assert.Equal(t, "+56987654321", *got)

	got, err = NormalizePhone(strPtr("+56 9 8765 4321"))
	require.NoError(t, err)
	assert.Equal(t, "+56987654321", *got)

	got, err = NormalizePhone(strPtr("   "))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = NormalizePhone(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNormalizePhone_Invalid(t *testing.T) {
	for _, raw := range []string{"abc", "123"} {
		_, err := NormalizePhone(strPtr(raw))
		assert.ErrorIs(t, err, ErrInvalidPhone, raw)
	}
}

func TestPgRepository_CreatePatient_RejectsBadPhone(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.CreatePatient(context.Background(), Patient{FirstName: "Ana", Phone: strPtr("123")})
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
