package telemetry

import (
	"log/slog"
	"os"

	"github.com/cxchat/lingo-gateway/internal/config"
)

// NewLogger builds the process logger from telemetry config. Unknown
// levels fall back to info, unknown formats to JSON.
func NewLogger(cfg config.TelemetryConfig) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
