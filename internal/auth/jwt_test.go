package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	m := NewTokenManager("secret-key")

	signed, err := m.Sign("u1", "alice", "USER", time.Hour)
	require.NoError(t, err)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "USER", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenManagerRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokenManager("secret-a").Sign("u1", "alice", "USER", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").Parse(signed)
	assert.Error(t, err)
}

func TestTokenManagerRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret-key")

	signed, err := m.Sign("u1", "alice", "USER", -time.Minute)
	require.NoError(t, err)

	_, err = m.Parse(signed)
	assert.Error(t, err)
}

func TestTokenManagerRejectsGarbage(t *testing.T) {
	m := NewTokenManager("secret-key")
	_, err := m.Parse("not.a.jwt")
	assert.Error(t, err)
}
