package diag

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelOff disables all output.
const LevelOff = slog.Level(1 << 10)

// LevelTrace is below debug for very chatty diagnostics.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name to a slog.Level. The empty string means error.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "error":
		return slog.LevelError, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "off", "none":
		return LevelOff, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", raw)
	}
}
