package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuerRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Generate(42, "p@example.com", "participant")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 42, Email: "p@example.com", Role: "participant"}, claims)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a, err := NewIssuer("secret-a", time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer("secret-b", time.Hour)
	require.NoError(t, err)

	token, err := a.Generate(1, "x@example.com", "admin")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := issuer.Generate(1, "x@example.com", "admin")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))

	generated, err := GeneratePassword(12)
	require.NoError(t, err)
	assert.Len(t, generated, 12)
}
