package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"unknown", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNew_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetboard.log")

	l, cleanup, err := New(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hello file", zap.String("table", "Errors"))
	_ = l.Sync()
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello file") || !strings.Contains(string(data), `"timestamp"`) {
		t.Errorf("log file = %q, want message and timestamp key", data)
	}
}

func TestGlobalSetGlobal(t *testing.T) {
	original := Global()
	defer SetGlobal(original)

	core, obs := observer.New(zapcore.InfoLevel)
	SetGlobal(zap.New(core))

	OrGlobal(nil).Info("via global")
	if obs.Len() != 1 {
		t.Fatalf("observed %d entries, want 1", obs.Len())
	}

	SetGlobal(nil)
	if Global() == nil {
		t.Fatal("SetGlobal(nil) should install a no-op logger")
	}
}
