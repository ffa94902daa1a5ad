// Package logging builds the slog logger shared by the CLI and the client.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New returns a logger writing to w at the given level ("debug", "info", "warn", "error").
func New(w io.Writer, level string, format Format) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatText, "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q: use \"text\" or \"json\"", format)
	}
	return slog.New(handler).With("component", "authrelay"), nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// RestyLogger adapts a slog.Logger to resty's printf-style Logger interface.
type RestyLogger struct {
	L *slog.Logger
}

func (r RestyLogger) Errorf(format string, v ...interface{}) {
	r.L.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty")
}

func (r RestyLogger) Warnf(format string, v ...interface{}) {
	r.L.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty")
}

func (r RestyLogger) Debugf(format string, v ...interface{}) {
	r.L.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty")
}
