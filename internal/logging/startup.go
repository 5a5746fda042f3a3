package logging

import (
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects the gateway's identity, storage configuration, and
// feature flags, then emits a single structured zerolog event summarising the
// startup state. This makes it easy to see exactly how the server was
// configured when troubleshooting from logs.
type StartupLogger struct {
	name     string
	backend  string
	features map[string]bool
	config   map[string]string
}

// NewStartupLogger creates a StartupLogger for the given server name.
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// Backend records which object-store backend is active ("s3" or "minio").
func (s *StartupLogger) Backend(name string) *StartupLogger {
	s.backend = name
	return s
}

// Feature registers a boolean feature flag (e.g. "optimize").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
// Never pass credentials here.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	serverDict := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", EnvOrDefault("IMAGEGATE_LOG_LEVEL", "info"))

	if s.backend != "" {
		serverDict = serverDict.Str("backend", s.backend)
	}

	evt = evt.Dict("server", serverDict)

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	if len(s.config) > 0 {
		d := zerolog.Dict()
		for k, v := range s.config {
			d = d.Str(k, v)
		}
		evt = evt.Dict("config", d)
	}

	evt.Msg("Server startup complete")
}
