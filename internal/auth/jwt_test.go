package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildline/config"
	"buildline/internal/domain"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "buildline-test",
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(cfg, domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "buildline-test", claims.Issuer)
}

func TestParseTokenRejects(t *testing.T) {
	cfg := testAuthConfig()

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(cfg, domain.RoleAdmin)
		require.NoError(t, err)
		other := &config.AuthConfig{JWTSecret: "different", TokenExpiry: time.Hour}
		_, err = ParseToken(other, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		short := &config.AuthConfig{JWTSecret: cfg.JWTSecret, TokenExpiry: -time.Minute}
		token, err := GenerateToken(short, domain.RoleAdmin)
		require.NoError(t, err)
		_, err = ParseToken(cfg, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseToken(cfg, "not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
