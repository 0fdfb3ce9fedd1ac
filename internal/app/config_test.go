package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.CheckCacheTTL)
	assert.Equal(t, 300, cfg.RateLimitPerMinute)
	assert.Equal(t, 100, cfg.CacheWarmUsers)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("CHECK_CACHE_TTL", "2m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.AppAddr)
	assert.Equal(t, 2*time.Minute, cfg.CheckCacheTTL)
	assert.True(t, cfg.IsProduction())
}

func TestIsProductionNilReceiver(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
}
