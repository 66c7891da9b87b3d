// Package startup holds the process configuration read from the environment
// exactly once, at process entry. The value is passed down explicitly; no
// component re-reads the environment afterwards.
package startup

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/joeshaw/envdecode"
)

// LogDirEnabled is the RA_LOG_DIR value that turns on file logging.
const LogDirEnabled = "1"

// Traceback is the crash traceback level forced at startup: only the
// panicking goroutine is printed, the closest Go has to a short backtrace.
const Traceback = "single"

// Config is the startup configuration. Defaults are provided via struct tags.
type Config struct {
	// LogDir routes diagnostics to a file under ./log when set to "1".
	// ENV: RA_LOG_DIR
	LogDir string `env:"RA_LOG_DIR"`
	// LogLevel is the minimum severity written to the sink. ENV: RA_LOG
	LogLevel string `env:"RA_LOG,default=error"`
	// Profile is a profiling filter spec; empty disables profiling.
	// ENV: RA_PROFILE
	Profile string `env:"RA_PROFILE"`
	// OTLPEndpoint additionally exports profiling spans over OTLP/HTTP.
	// ENV: RA_OTEL_ENDPOINT
	OTLPEndpoint string `env:"RA_OTEL_ENDPOINT"`
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{LogLevel: "error"}
}

// FromEnv decodes Config from the process environment.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode startup environment: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	return cfg, nil
}

// FileLogging reports whether diagnostics should also go to the log directory.
func (c Config) FileLogging() bool {
	return c.LogDir == LogDirEnabled
}

// ProfilingEnabled reports whether a profiling filter was supplied.
func (c Config) ProfilingEnabled() bool {
	return c.Profile != ""
}

// ApplyTraceback forces the short traceback mode for unrecovered crashes.
func ApplyTraceback() {
	debug.SetTraceback(Traceback)
}
