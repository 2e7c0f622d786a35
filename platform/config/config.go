// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq-based background scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSweepInterval() time.Duration
}

// IntegrityConfig provides the default knobs for the bundle integrity engine.
// Each option can still be overridden per call at the API boundary.
type IntegrityConfig interface {
	GetStrictValidation() bool
	GetAllowInactiveProducts() bool
	GetCacheTimeout() time.Duration
	GetCacheMaxEntries() int
	GetCacheCleanupInterval() time.Duration
	GetAutoCorrectPrices() bool
	GetAutoCorrectNames() bool
	GetAutoFix() bool
	GetSweepBatchSize() int
	GetSweepMaxConcurrency() int
}

// =============================================================================
// Config Implementation
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	SweepInterval    time.Duration

	StrictValidation      bool
	AllowInactiveProducts bool
	CacheTimeout          time.Duration
	CacheMaxEntries       int
	CacheCleanupInterval  time.Duration
	AutoCorrectPrices     bool
	AutoCorrectNames      bool
	AutoFix               bool
	SweepBatchSize        int
	SweepMaxConcurrency   int
}

// Load reads configuration from the environment (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),

		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SweepInterval:    mustDuration(getEnv("INTEGRITY_SWEEP_INTERVAL", "1h")),

		StrictValidation:      strings.EqualFold(getEnv("INTEGRITY_STRICT_VALIDATION", "true"), "true"),
		AllowInactiveProducts: strings.EqualFold(getEnv("INTEGRITY_ALLOW_INACTIVE", "false"), "true"),
		CacheTimeout:          mustDuration(getEnv("INTEGRITY_CACHE_TIMEOUT", "5m")),
		CacheMaxEntries:       mustInt(getEnv("INTEGRITY_CACHE_MAX_ENTRIES", "1000")),
		CacheCleanupInterval:  mustDuration(getEnv("INTEGRITY_CACHE_CLEANUP_INTERVAL", "10m")),
		AutoCorrectPrices:     strings.EqualFold(getEnv("INTEGRITY_AUTO_CORRECT_PRICES", "true"), "true"),
		AutoCorrectNames:      strings.EqualFold(getEnv("INTEGRITY_AUTO_CORRECT_NAMES", "true"), "true"),
		AutoFix:               strings.EqualFold(getEnv("INTEGRITY_AUTO_FIX", "true"), "true"),
		SweepBatchSize:        mustInt(getEnv("INTEGRITY_SWEEP_BATCH_SIZE", "10")),
		SweepMaxConcurrency:   mustInt(getEnv("INTEGRITY_SWEEP_MAX_CONCURRENCY", "3")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.SweepBatchSize < 1 {
		return nil, fmt.Errorf("INTEGRITY_SWEEP_BATCH_SIZE must be at least 1")
	}
	if cfg.SweepMaxConcurrency < 1 {
		return nil, fmt.Errorf("INTEGRITY_SWEEP_MAX_CONCURRENCY must be at least 1")
	}

	return cfg, nil
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string              { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool        { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string        { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int         { return c.AsynqConcurrency }
func (c *Config) GetSweepInterval() time.Duration  { return c.SweepInterval }

// IntegrityConfig implementation
func (c *Config) GetStrictValidation() bool              { return c.StrictValidation }
func (c *Config) GetAllowInactiveProducts() bool         { return c.AllowInactiveProducts }
func (c *Config) GetCacheTimeout() time.Duration         { return c.CacheTimeout }
func (c *Config) GetCacheMaxEntries() int                { return c.CacheMaxEntries }
func (c *Config) GetCacheCleanupInterval() time.Duration { return c.CacheCleanupInterval }
func (c *Config) GetAutoCorrectPrices() bool             { return c.AutoCorrectPrices }
func (c *Config) GetAutoCorrectNames() bool              { return c.AutoCorrectNames }
func (c *Config) GetAutoFix() bool                       { return c.AutoFix }
func (c *Config) GetSweepBatchSize() int                 { return c.SweepBatchSize }
func (c *Config) GetSweepMaxConcurrency() int            { return c.SweepMaxConcurrency }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
