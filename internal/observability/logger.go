// Package observability builds the logger and Prometheus metrics shared by
// the CLI commands and the server.
package observability

import (
	"io"
	"log/slog"
	"strings"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// NewLogger returns a slog logger writing to w in the given format.
// Unknown formats fall back to JSON.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, LogFormatText) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
