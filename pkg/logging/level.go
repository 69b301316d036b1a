package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace sits below debug for per-message chatter such as renames.
const LevelTrace = slog.Level(-8)

// ErrUnknownLogLevel indicates the provided log level string is not supported.
var ErrUnknownLogLevel = errors.New("unknown log level")

// ParseLevel maps a CLI/config level name onto a slog level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %s", ErrUnknownLogLevel, value)
	}
}

// ReplaceLevel renders LevelTrace as "TRACE" instead of "DEBUG-4".
func ReplaceLevel(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}

	if level, ok := attr.Value.Any().(slog.Level); ok && level <= LevelTrace {
		attr.Value = slog.StringValue("TRACE")
	}

	return attr
}
