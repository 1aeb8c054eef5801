package app

import (
	"io"
	"log/slog"
)

// newLogger builds the application logger. Each App owns its own logger, so
// a scheduled daemon and a one-shot run never share handler state.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}

	logger := slog.New(handler)
	// Daemon logs interleave many scheduled runs, so tag them up front.
	if cfg.Daemon {
		logger = logger.With("mode", "daemon")
	}
	return logger
}
