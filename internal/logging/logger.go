// Package logging configures structured logging on log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"github.com/reportdesk/backend/internal/config"
)

// Setup builds the process logger from config and installs it as the slog
// default. Console output goes to stderr in the configured format; when a
// log file is configured, records are fanned out to it as JSON.
// The returned cleanup closes the log file.
func Setup(cfg config.LoggingConfig) (*slog.Logger, func() error) {
	level := ParseLevel(cfg.Level)

	file, err := openLogFile(cfg.File)
	if err != nil {
		logger := New(os.Stderr, nil, cfg.Format, level)
		slog.SetDefault(logger)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", cfg.File)
		return logger, func() error { return nil }
	}

	var fileWriter io.Writer
	cleanup := func() error { return nil }
	if file != nil {
		fileWriter = file
		cleanup = file.Close
	}

	logger := New(os.Stderr, fileWriter, cfg.Format, level)
	slog.SetDefault(logger)
	return logger, cleanup
}

// New creates a logger writing to console in the given format and, when
// file is non-nil, JSON records to file as well.
func New(console, file io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var consoleHandler slog.Handler
	if strings.ToLower(format) == "json" {
		consoleHandler = slog.NewJSONHandler(console, opts)
	} else {
		consoleHandler = slog.NewTextHandler(console, opts)
	}

	if file == nil {
		return slog.New(consoleHandler)
	}

	fileHandler := slog.NewJSONHandler(file, opts)
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// OrDefault returns l, or the slog default logger when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
