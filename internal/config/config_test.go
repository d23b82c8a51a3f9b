package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	require.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	require.Equal(t, "info", cfg.Log.Level)
	require.Empty(t, cfg.Cache.RedisAddr)
	require.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	require.Equal(t, 10000, cfg.Cache.MaxEntries)
	require.False(t, cfg.RateLimit.Enabled)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BLOCKHTML_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("CACHE_MAX_ENTRIES", "500")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	require.Equal(t, time.Minute, cfg.Cache.TTL)
	require.Equal(t, 500, cfg.Cache.MaxEntries)
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 2.5, cfg.RateLimit.RPS)
	require.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CACHE_PREFIX=test:render:\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CACHE_PREFIX") })

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "test:render:", cfg.Cache.Prefix)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_BURST", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigInvalidCacheSize(t *testing.T) {
	t.Setenv("CACHE_MAX_ENTRIES", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}
