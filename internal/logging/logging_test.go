package logging

import (
	"bytes"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"trace":  slog.LevelTrace,
		"debug":  slog.LevelDebug,
		"INFO":   slog.LevelInfo,
		" warn ": slog.LevelWarn,
		"error":  slog.LevelError,
		"off":    slog.LevelOff,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestBackendLogger(t *testing.T) {
	var buf bytes.Buffer
	b, err := NewBackend(&buf, "info")
	require.NoError(t, err)

	log := b.Logger("SCAN")
	log.Debugf("hidden")
	log.Infof("scanned %d blocks", 3)

	out := buf.String()
	assert.Contains(t, out, "[INF] SCAN: scanned 3 blocks")
	assert.NotContains(t, out, "hidden")
}

func TestNewBackendInvalidLevel(t *testing.T) {
	_, err := NewBackend(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}
