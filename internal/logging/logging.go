// Package logging configures structured logging for the server and worker.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup initializes the default slog logger on stdout.
// Dev mode uses human-readable text; prod uses JSON. level overrides the
// mode's default level when set.
func Setup(devMode bool, level string) {
	slog.SetDefault(New(os.Stdout, devMode, level))
}

// New builds a logger writing to w.
func New(w io.Writer, devMode bool, level string) *slog.Logger {
	lvl := slog.LevelInfo
	if devMode {
		lvl = slog.LevelDebug
	}
	if level != "" {
		lvl = ParseLevel(level, lvl)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if devMode {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to a slog level, returning fallback for
// unknown names.
func ParseLevel(name string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return fallback
}
