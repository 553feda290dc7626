package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the default logger.
type Options struct {
	// Level is "debug", "info", "warn" or "error" (default "info").
	Level string
	// Format is "json" or "text" (default "json").
	Format string
	// File, when set, also writes to a rotating log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Setup initialises the global slog default logger and returns it.
func Setup(o Options) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(o.Level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var w io.Writer = os.Stdout
	if o.File != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB, // MB
			MaxBackups: o.MaxBackups,
			Compress:   true,
		})
	}

	logger := slog.New(NewHandler(w, o.Format, lvl))
	slog.SetDefault(logger)
	return logger
}

// NewHandler builds a JSON or text handler writing to w.
func NewHandler(w io.Writer, format string, lvl slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
