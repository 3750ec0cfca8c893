// Package observability constructs the logger, tracer, and meter the
// benchmark components receive. Everything is built once in main and passed
// down explicitly; nothing here installs itself into a process-wide global.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// ShutdownFunc flushes and tears down an exporter pipeline.
type ShutdownFunc func(context.Context) error

func nopShutdown(context.Context) error { return nil }

// NewLogger returns a text logger writing to stderr so report output on
// stdout stays machine-friendly.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
