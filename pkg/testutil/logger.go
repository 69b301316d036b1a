package testutil

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/jkoelker/xen-guest-agent/pkg/logging"
)

type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()

	w.tb.Log(strings.TrimRight(string(p), "\n"))

	return len(p), nil
}

// LoggerFromTB routes every record, trace included, to tb.Log.
func LoggerFromTB(tb testing.TB) *slog.Logger {
	tb.Helper()

	handler := slog.NewTextHandler(tbWriter{tb: tb}, &slog.HandlerOptions{
		Level:       logging.LevelTrace,
		ReplaceAttr: logging.ReplaceLevel,
	})

	return slog.New(handler).With("test", tb.Name())
}
