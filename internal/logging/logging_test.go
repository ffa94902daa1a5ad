package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", FormatJSON)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("token refreshed", "attempt", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %s", out)
	}
	if !strings.Contains(out, `"msg":"token refreshed"`) {
		t.Errorf("missing JSON message in %s", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "info", Format("xml")); err == nil {
		t.Fatal("New() with xml format error = nil, want error")
	}
}

func TestRestyLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&buf, "debug", FormatText)
	rl := RestyLogger{L: logger}
	rl.Warnf("retrying %s\n", "GET /users")

	if !strings.Contains(buf.String(), "retrying GET /users") {
		t.Errorf("resty warning not forwarded: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "source=resty") {
		t.Errorf("missing source attribute: %s", buf.String())
	}
}
