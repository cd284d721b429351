package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souqlink/backend/internal/infrastructure/config"
)

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-0123456789abcdef0123",
		Issuer:                "souqlink-test",
		AccessTokenExpiration: expiration,
	})
}

func TestJWTRoundTrip(t *testing.T) {
	svc := newTestService(time.Hour)
	merchantID := uuid.New()

	token, err := svc.GenerateAccessToken(merchantID, "owner@honeysouq.sa")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, merchantID.String(), claims.MerchantID)
	assert.Equal(t, "owner@honeysouq.sa", claims.Email)
	assert.Equal(t, "souqlink-test", claims.Issuer)
	assert.Equal(t, merchantID.String(), claims.Subject)
}

func TestJWTExpired(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.GenerateAccessToken(uuid.New(), "owner@honeysouq.sa")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := newTestService(time.Hour).GenerateAccessToken(uuid.New(), "owner@honeysouq.sa")
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{
		Secret:                "another-secret-entirely-0123456789",
		Issuer:                "souqlink-test",
		AccessTokenExpiration: time.Hour,
	})
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTMalformed(t *testing.T) {
	svc := newTestService(time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.ValidateAccessToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}
