// v1
// internal/logging/logger.go

// Package logging wires slog to both stdout and a service log file so the
// dashboard can be inspected live in a container and after the fact from
// an attached volume.
package logging

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Init builds the process logger. The log directory comes from LOG_DIR
// (default ./logs) and the level from LOG_LEVEL (default info). The
// returned file must be closed by the caller on shutdown; when the file
// cannot be opened the logger degrades to stdout only.
func Init(service string) (*slog.Logger, *os.File) {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "./logs"
	}
	_ = os.MkdirAll(logDir, 0o755)

	level := parseLevel(os.Getenv("LOG_LEVEL"))
	opts := &slog.HandlerOptions{Level: level}

	filePath := filepath.Join(logDir, service+".log")
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
		logger.Error("log_file_open_failed", slog.String("path", filePath), slog.Any("err", err))
		return logger, nil
	}

	console := slog.NewTextHandler(os.Stdout, opts)
	fileHandler := slog.NewTextHandler(f, opts)
	logger := slog.New(&teeHandler{handlers: []slog.Handler{console, fileHandler}})

	// point the stdlib logger (used by some dependencies) at the file too
	log.SetOutput(f)
	return logger, f
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if err := h.Handle(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		next = append(next, h.WithAttrs(attrs))
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		next = append(next, h.WithGroup(name))
	}
	return &teeHandler{handlers: next}
}
