package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONHandler builds the stdout handler. Debug records are only kept
// outside production.
func NewJSONHandler(w io.Writer, env string) slog.Handler {
	level := slog.LevelInfo
	if strings.EqualFold(env, "development") {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// Setup initializes the global slog logger with JSON output to stdout.
func Setup(env string) slog.Handler {
	handler := NewJSONHandler(os.Stdout, env)
	slog.SetDefault(slog.New(handler))
	return handler
}
