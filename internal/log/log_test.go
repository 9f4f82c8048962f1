package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_TextHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", false)

	l.Info("hidden")
	l.Warn("shown", "state", "ASLEEP")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "state=ASLEEP") {
		t.Errorf("expected text attribute in output, got %q", out)
	}
}

func TestNew_JSONHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", true)

	l.Info("identity changed", "driver", "alice")

	if !strings.Contains(buf.String(), `"driver":"alice"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
