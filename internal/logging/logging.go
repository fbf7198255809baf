package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a console slog.Logger for the requested level. Unknown level
// strings fall back to info so a typo in config never silences the pipeline.
func New(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

// Component scopes a logger to one pipeline component.
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		return slog.Default().With("component", name)
	}
	return base.With("component", name)
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
