package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration read from the environment.
// main stays lean; everything here is validated once at startup.
type Server struct {
	Addr    string
	DevMode bool

	// Token issuance / validation.
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration

	// Tenant directory and cache.
	DatabaseURL      string
	RedisURL         string
	CacheAbsoluteTTL time.Duration
	CacheSlidingTTL  time.Duration
	LookupTimeout    time.Duration

	// Tenant store connections.
	ConnectTimeout time.Duration
	ConnectRetries int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
}

// FromEnv builds a Server config from environment variables.
// The JWT signing key is mandatory: a missing key is a startup failure,
// never a per-request one.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:             getEnv("ATRIUM_ADDR", ":8080"),
		DevMode:          os.Getenv("ATRIUM_DEV_MODE") == "true",
		JWTIssuer:        getEnv("JWT_ISSUER", "atrium"),
		JWTAudience:      getEnv("JWT_AUDIENCE", "atrium"),
		TokenTTL:         getDuration("TOKEN_TTL", 24*time.Hour),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		CacheAbsoluteTTL: getDuration("TENANT_CACHE_TTL", 30*time.Minute),
		CacheSlidingTTL:  getDuration("TENANT_CACHE_SLIDING_TTL", 10*time.Minute),
		LookupTimeout:    getDuration("TENANT_LOOKUP_TIMEOUT", 5*time.Second),
		ConnectTimeout:   getDuration("TENANT_CONNECT_TIMEOUT", 5*time.Second),
		ConnectRetries:   getInt("TENANT_CONNECT_RETRIES", 3),
		BackoffBase:      getDuration("TENANT_CONNECT_BACKOFF", 250*time.Millisecond),
		BackoffCap:       getDuration("TENANT_CONNECT_BACKOFF_CAP", 5*time.Second),
	}

	cfg.JWTSigningKey = os.Getenv("JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		if !cfg.DevMode {
			return Server{}, fmt.Errorf("JWT_SIGNING_KEY is required")
		}
		// Dev mode only; production startup fails above.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	if cfg.CacheSlidingTTL > cfg.CacheAbsoluteTTL {
		cfg.CacheSlidingTTL = cfg.CacheAbsoluteTTL
	}
	if cfg.ConnectRetries < 1 {
		cfg.ConnectRetries = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
