package logging_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoelker/xen-guest-agent/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"trace":   logging.LevelTrace,
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}

	for input, want := range cases {
		got, err := logging.ParseLevel(input)
		require.NoError(t, err, "level %q", input)
		assert.Equal(t, want, got, "level %q", input)
	}
}

func TestParseLevelUnknown(t *testing.T) {
	t.Parallel()

	_, err := logging.ParseLevel("loud")
	require.ErrorIs(t, err, logging.ErrUnknownLogLevel)
}

func TestReplaceLevelRendersTrace(t *testing.T) {
	t.Parallel()

	attr := logging.ReplaceLevel(nil, slog.Any(slog.LevelKey, logging.LevelTrace))
	assert.Equal(t, "TRACE", attr.Value.String())

	attr = logging.ReplaceLevel(nil, slog.Any(slog.LevelKey, slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, attr.Value.Any())
}
