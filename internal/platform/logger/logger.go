// Package logger builds the process logger: JSON lines on stdout, which the
// Functions host ships to Application Insights.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// ServiceName tags every record.
const ServiceName = "regon-search"

// New returns an info-level logger, used before configuration is loaded.
func New() *slog.Logger {
	return NewWithLevel(slog.LevelInfo)
}

func NewWithLevel(level slog.Level) *slog.Logger {
	return newJSON(os.Stdout, level)
}

func newJSON(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", ServiceName)
}
