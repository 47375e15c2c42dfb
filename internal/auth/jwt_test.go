package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndValidate(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	token, expiresAt, err := m.Issue(userID, "ann@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestTokenManager_Validate_Rejects(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	token, _, err := m.Issue(uuid.New(), "ann@example.com")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		_, err := other.Validate(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager("test-secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Validate(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Validate("not-a-jwt")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestNewTokenManager_DefaultExpiry(t *testing.T) {
	m := NewTokenManager("s", 0)
	assert.Equal(t, 7*24*time.Hour, m.Expiry())
}
