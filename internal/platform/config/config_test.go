package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_MissingSigningKeyFails(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("ATRIUM_DEV_MODE", "")

	_, err := FromEnv()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
}

func TestFromEnv_DevModeFallsBackToDevKey(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("ATRIUM_DEV_MODE", "true")

	cfg, err := FromEnv()

	require.NoError(t, err)
	assert.NotEmpty(t, cfg.JWTSigningKey)
	assert.True(t, cfg.DevMode)
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "k")
	t.Setenv("ATRIUM_ADDR", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("TENANT_CACHE_TTL", "")
	t.Setenv("TENANT_CACHE_SLIDING_TTL", "")
	t.Setenv("TENANT_CONNECT_RETRIES", "")

	cfg, err := FromEnv()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.CacheAbsoluteTTL)
	assert.Equal(t, 10*time.Minute, cfg.CacheSlidingTTL)
	assert.Equal(t, 3, cfg.ConnectRetries)
}

func TestFromEnv_SlidingTTLClampedToAbsolute(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "k")
	t.Setenv("TENANT_CACHE_TTL", "5m")
	t.Setenv("TENANT_CACHE_SLIDING_TTL", "20m")

	cfg, err := FromEnv()

	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.CacheSlidingTTL)
}
