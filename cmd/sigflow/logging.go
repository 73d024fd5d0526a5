package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// parseLevel maps a --log-level value to a slog level. Unknown values
// fall back to info; validateFlags rejects them before we get here.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// setupLogger builds the process logger. Every record carries the binary
// name, its version and the pid so that runs from one host can be told apart.
func setupLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.Group("process",
			slog.String("name", appName),
			slog.String("version", Version),
			slog.Int("pid", os.Getpid()),
		),
	)
}
