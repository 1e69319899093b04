package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	require.NotEqual(t, "admin123", hash)

	require.NoError(t, VerifyPassword("admin123", hash))
	require.ErrorIs(t, VerifyPassword("wrong", hash), ErrPasswordMismatch)
}

func TestVerifyPasswordRejectsGarbageHash(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, VerifyPassword("admin123", "not-a-hash"), ErrPasswordMismatch)
}

func TestHashesAreSalted(t *testing.T) {
	t.Parallel()

	a := MustHashPassword("password123")
	b := MustHashPassword("password123")
	require.NotEqual(t, a, b)
}
