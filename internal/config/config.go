package config

import (
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// CacheConfig selects the render cache. An empty RedisAddr disables Redis.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	TTL           time.Duration
	MaxEntries    int // in-memory cache bound
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// LoadConfig loads configuration from environment variables and, when
// present, the given .env files.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("BLOCKHTML_HOST", "0.0.0.0")
	v.SetDefault("BLOCKHTML_PORT", "8080")
	v.SetDefault("BLOCKHTML_READ_TIMEOUT_SECONDS", 15)
	v.SetDefault("BLOCKHTML_WRITE_TIMEOUT_SECONDS", 15)
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_PREFIX", "blockhtml:render:")
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("CACHE_MAX_ENTRIES", 10000)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("BLOCKHTML_HOST"),
			Port:         v.GetString("BLOCKHTML_PORT"),
			ReadTimeout:  time.Duration(v.GetInt("BLOCKHTML_READ_TIMEOUT_SECONDS")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("BLOCKHTML_WRITE_TIMEOUT_SECONDS")) * time.Second,
			MaxBodyBytes: v.GetInt64("MAX_BODY_BYTES"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
		Cache: CacheConfig{
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			Prefix:        v.GetString("CACHE_PREFIX"),
			TTL:           time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
			MaxEntries:    v.GetInt("CACHE_MAX_ENTRIES"),
		},
		RateLimit: RateLimitConfig{
			Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if cfg.Server.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Cache.MaxEntries <= 0 {
		return nil, fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0) {
		return nil, fmt.Errorf("rate limit enabled with rps=%v burst=%d", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	return cfg, nil
}
