package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret")
	token, err := svc.GenerateToken(42, "alice", "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenRejected(t *testing.T) {
	svc := NewJWTService("secret")
	token, err := svc.GenerateToken(1, "bob", "viewer")
	require.NoError(t, err)

	_, err = NewJWTService("other").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	late := NewJWTService("secret")
	late.now = func() time.Time { return time.Now().Add(tokenTTL + time.Hour) }
	_, err = late.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, CheckPassword("hunter2", hash))
	assert.False(t, CheckPassword("hunter3", hash))
}
