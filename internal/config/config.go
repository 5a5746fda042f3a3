// Package config loads the gateway configuration from environment variables,
// with an optional .env file for local development. All tunables have safe
// defaults; only the bucket name is required to serve.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Defaults for upload behaviour. These mirror the documented operation
// contracts; every one of them is overridable per invocation by the caller.
const (
	DefaultQuality     = 80
	DefaultMaxWidth    = 1920
	DefaultMaxHeight   = 1080
	DefaultConcurrency = 5

	// MaxConcurrency is the hard cap on parallel uploads regardless of what
	// the caller asks for, to keep file handles and in-flight buffers bounded.
	MaxConcurrency = 10

	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = 200 * time.Millisecond
	DefaultBackoffMultiplier = 2.0
	DefaultMaxDelay          = 5 * time.Second

	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second

	DefaultItemTimeout = 2 * time.Minute

	// DefaultMaxFileSize is the largest source file the gateway accepts (100 MB).
	DefaultMaxFileSize = 100 * 1024 * 1024
)

// Config holds the full gateway configuration.
type Config struct {
	// Storage backend: "s3" (default) or "minio".
	Backend string
	Bucket  string
	Region  string

	// MinIO / S3-compatible endpoint settings (only read when Backend=="minio").
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	// PublicBaseURL overrides the constructed object URL base (e.g. a CDN
	// domain fronting the bucket). Empty means derive from backend + bucket.
	PublicBaseURL string

	// Upload defaults.
	Optimize    bool
	Quality     int
	MaxWidth    int
	MaxHeight   int
	Concurrency int

	// Retry policy.
	MaxAttempts       int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration

	// Circuit breaker.
	FailureThreshold int
	Cooldown         time.Duration

	// Per-item deadline covering the whole retry sequence.
	ItemTimeout time.Duration

	// MaxFileSize rejects sources larger than this before reading them fully.
	MaxFileSize int64
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := &Config{
		Backend:        envStr("IMAGEGATE_STORAGE_BACKEND", "s3"),
		Bucket:         os.Getenv("IMAGEGATE_BUCKET"),
		Region:         envStr("AWS_REGION", "us-east-1"),
		MinioEndpoint:  os.Getenv("IMAGEGATE_MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("IMAGEGATE_MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("IMAGEGATE_MINIO_SECRET_KEY"),
		MinioUseSSL:    envBool("IMAGEGATE_MINIO_USE_SSL", false),
		PublicBaseURL:  os.Getenv("IMAGEGATE_PUBLIC_BASE_URL"),

		Optimize:    envBool("IMAGEGATE_OPTIMIZE", true),
		Quality:     envInt("IMAGEGATE_QUALITY", DefaultQuality),
		MaxWidth:    envInt("IMAGEGATE_MAX_WIDTH", DefaultMaxWidth),
		MaxHeight:   envInt("IMAGEGATE_MAX_HEIGHT", DefaultMaxHeight),
		Concurrency: envInt("IMAGEGATE_CONCURRENCY", DefaultConcurrency),

		MaxAttempts:       envInt("IMAGEGATE_MAX_ATTEMPTS", DefaultMaxAttempts),
		BaseDelay:         envDurationMs("IMAGEGATE_BASE_DELAY_MS", DefaultBaseDelay),
		BackoffMultiplier: envFloat("IMAGEGATE_BACKOFF_MULTIPLIER", DefaultBackoffMultiplier),
		MaxDelay:          envDurationMs("IMAGEGATE_MAX_DELAY_MS", DefaultMaxDelay),

		FailureThreshold: envInt("IMAGEGATE_CIRCUIT_FAILURE_THRESHOLD", DefaultFailureThreshold),
		Cooldown:         envDurationMs("IMAGEGATE_CIRCUIT_COOLDOWN_MS", DefaultCooldown),

		ItemTimeout: envDurationMs("IMAGEGATE_ITEM_TIMEOUT_MS", DefaultItemTimeout),
		MaxFileSize: envInt64("IMAGEGATE_MAX_FILE_SIZE", DefaultMaxFileSize),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and clamps the concurrency limit.
func (c *Config) Validate() error {
	if c.Backend != "s3" && c.Backend != "minio" {
		return fmt.Errorf("unknown storage backend %q (want s3 or minio)", c.Backend)
	}
	if c.Backend == "minio" && c.MinioEndpoint == "" {
		return fmt.Errorf("IMAGEGATE_MINIO_ENDPOINT is required when backend is minio")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be 1-100, got %d", c.Quality)
	}
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return fmt.Errorf("max dimensions must be positive, got %dx%d", c.MaxWidth, c.MaxHeight)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("circuit failure threshold must be at least 1, got %d", c.FailureThreshold)
	}

	if c.Concurrency < 1 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Concurrency > MaxConcurrency {
		log.Warn().
			Int("requested", c.Concurrency).
			Int("cap", MaxConcurrency).
			Msg("Concurrency limit clamped")
		c.Concurrency = MaxConcurrency
	}
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("var", key).Str("value", v).Msg("Invalid integer in environment, using default")
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().Str("var", key).Str("value", v).Msg("Invalid integer in environment, using default")
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("var", key).Str("value", v).Msg("Invalid float in environment, using default")
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("var", key).Str("value", v).Msg("Invalid boolean in environment, using default")
		return def
	}
	return b
}

func envDurationMs(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		log.Warn().Str("var", key).Str("value", v).Msg("Invalid millisecond value in environment, using default")
		return def
	}
	return time.Duration(n) * time.Millisecond
}
