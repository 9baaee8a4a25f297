package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"timetracker/internal/config"
)

// NewLogger creates a *slog.Logger based on the provided LogConfig
// and sets it as the default logger via slog.SetDefault.
//
// Format "json" produces structured JSON output; anything else produces
// text with source info. Output goes to cfg.File, or stderr when File is
// "-" or empty, since the terminal UI owns stdout. The returned close
// function releases the log file.
func NewLogger(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	var (
		out     io.Writer = os.Stderr
		closeFn           = func() error { return nil }
	)
	if f := strings.TrimSpace(cfg.File); f != "" && f != "-" {
		file, err := os.OpenFile(f, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
		closeFn = file.Close
	}

	logger := slog.New(newHandler(out, cfg))
	slog.SetDefault(logger)

	return logger, closeFn, nil
}

func newHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: !strings.EqualFold(cfg.Format, "json"),
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
