// Package logging builds the decred/slog backend shared by the commands.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/decred/slog"
)

// Backend hands out subsystem loggers that all write to one writer at
// one level.
type Backend struct {
	backend *slog.Backend
	level   slog.Level
}

// NewBackend creates a backend writing to w. level is one of trace,
// debug, info, warn, error, critical or off.
func NewBackend(w io.Writer, level string) (*Backend, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &Backend{backend: slog.NewBackend(w), level: lvl}, nil
}

// Logger returns a logger tagged with subsystem.
func (b *Backend) Logger(subsystem string) slog.Logger {
	log := b.backend.Logger(subsystem)
	log.SetLevel(b.level)
	return log
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	lvl, ok := slog.LevelFromString(strings.ToLower(strings.TrimSpace(level)))
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
	return lvl, nil
}
