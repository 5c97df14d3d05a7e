// Package logging builds the slog logger which consumes the migrator's
// structured events.
package logging

import (
	"io"
	"log/slog"
)

// New returns a logger writing to w at level in the given format ("json" or
// anything else for text).
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
