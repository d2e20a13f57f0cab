package logging

import (
	"log/slog"
	"os"
	"strings"
)

func init() {
	// Default to INFO level text output until the config is read
	InitLogger("info")
}

// InitLogger installs the process-wide slog default. Level accepts
// "debug", "info", "warn"/"warning" or "error", optionally suffixed
// with ",json" to switch to JSON output for log aggregation
// (e.g. "info,json").
func InitLogger(level string) {
	levelPart, format, _ := strings.Cut(strings.ToLower(level), ",")

	opts := &slog.HandlerOptions{
		Level: parseLevel(levelPart),
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
