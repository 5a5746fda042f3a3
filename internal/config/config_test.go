package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IMAGEGATE_BUCKET", "media")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend != "s3" {
		t.Errorf("Backend = %q, want s3", cfg.Backend)
	}
	if cfg.Bucket != "media" {
		t.Errorf("Bucket = %q, want media", cfg.Bucket)
	}
	if !cfg.Optimize {
		t.Error("Optimize = false, want true by default")
	}
	if cfg.Quality != DefaultQuality {
		t.Errorf("Quality = %d, want %d", cfg.Quality, DefaultQuality)
	}
	if cfg.MaxWidth != DefaultMaxWidth || cfg.MaxHeight != DefaultMaxHeight {
		t.Errorf("dimensions = %dx%d, want %dx%d", cfg.MaxWidth, cfg.MaxHeight, DefaultMaxWidth, DefaultMaxHeight)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", cfg.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.BaseDelay != DefaultBaseDelay {
		t.Errorf("BaseDelay = %v, want %v", cfg.BaseDelay, DefaultBaseDelay)
	}
	if cfg.ItemTimeout != DefaultItemTimeout {
		t.Errorf("ItemTimeout = %v, want %v", cfg.ItemTimeout, DefaultItemTimeout)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d, want %d", cfg.MaxFileSize, DefaultMaxFileSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IMAGEGATE_BUCKET", "media")
	t.Setenv("IMAGEGATE_QUALITY", "55")
	t.Setenv("IMAGEGATE_MAX_WIDTH", "800")
	t.Setenv("IMAGEGATE_MAX_HEIGHT", "600")
	t.Setenv("IMAGEGATE_OPTIMIZE", "false")
	t.Setenv("IMAGEGATE_CONCURRENCY", "7")
	t.Setenv("IMAGEGATE_BASE_DELAY_MS", "50")
	t.Setenv("IMAGEGATE_CIRCUIT_COOLDOWN_MS", "1000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Quality != 55 {
		t.Errorf("Quality = %d, want 55", cfg.Quality)
	}
	if cfg.MaxWidth != 800 || cfg.MaxHeight != 600 {
		t.Errorf("dimensions = %dx%d, want 800x600", cfg.MaxWidth, cfg.MaxHeight)
	}
	if cfg.Optimize {
		t.Error("Optimize = true, want false")
	}
	if cfg.Concurrency != 7 {
		t.Errorf("Concurrency = %d, want 7", cfg.Concurrency)
	}
	if cfg.BaseDelay != 50*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 50ms", cfg.BaseDelay)
	}
	if cfg.Cooldown != time.Second {
		t.Errorf("Cooldown = %v, want 1s", cfg.Cooldown)
	}
}

func TestLoadClampsConcurrency(t *testing.T) {
	t.Setenv("IMAGEGATE_BUCKET", "media")
	t.Setenv("IMAGEGATE_CONCURRENCY", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != MaxConcurrency {
		t.Errorf("Concurrency = %d, want clamp to %d", cfg.Concurrency, MaxConcurrency)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("IMAGEGATE_BUCKET", "media")
	t.Setenv("IMAGEGATE_CONCURRENCY", "lots")
	t.Setenv("IMAGEGATE_OPTIMIZE", "maybe")
	t.Setenv("IMAGEGATE_BASE_DELAY_MS", "-5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want default %d", cfg.Concurrency, DefaultConcurrency)
	}
	if !cfg.Optimize {
		t.Error("Optimize = false, want default true")
	}
	if cfg.BaseDelay != DefaultBaseDelay {
		t.Errorf("BaseDelay = %v, want default %v", cfg.BaseDelay, DefaultBaseDelay)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backend:          "s3",
			Quality:          80,
			MaxWidth:         1920,
			MaxHeight:        1080,
			Concurrency:      5,
			MaxAttempts:      3,
			FailureThreshold: 3,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"minio with endpoint", func(c *Config) {
			c.Backend = "minio"
			c.MinioEndpoint = "localhost:9000"
		}, false},
		{"unknown backend", func(c *Config) { c.Backend = "gcs" }, true},
		{"minio without endpoint", func(c *Config) { c.Backend = "minio" }, true},
		{"quality zero", func(c *Config) { c.Quality = 0 }, true},
		{"quality over 100", func(c *Config) { c.Quality = 150 }, true},
		{"negative width", func(c *Config) { c.MaxWidth = -1 }, true},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"zero threshold", func(c *Config) { c.FailureThreshold = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
