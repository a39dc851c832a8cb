// Package applog wraps the standard library's log/slog with the small
// amount of convention AdaptivePow's device contexts need: a component
// tag on every line, mirroring how the rest of the corpus's pool-server
// sibling wraps slog rather than hand-rolling levels and formats.
package applog

import (
	"log/slog"
	"os"
)

// Logger tags every record with the component that emitted it.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing JSON lines to stdout at the given level
// ("debug", "info", "warn", "error"; anything else falls back to info).
func New(component, level string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return &Logger{Logger: slog.New(handler).With("component", component)}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child Logger carrying additional key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}
