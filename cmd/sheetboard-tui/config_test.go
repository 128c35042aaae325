package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCLIConfig(t *testing.T) {
	t.Setenv("SHEETBOARD_UPDATE_INTERVAL", "")
	t.Setenv("SHEETBOARD_SOCKET_PATH", "")

	path := filepath.Join(t.TempDir(), "config.yml")
	body := "update-interval: 45s\nsocket-path: /tmp/sb-test.sock\nspreadsheet-id: ignored\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.UpdateInterval != 45*time.Second {
		t.Errorf("UpdateInterval = %s, want 45s", cfg.UpdateInterval)
	}
	if cfg.SocketPath != "/tmp/sb-test.sock" {
		t.Errorf("SocketPath = %q", cfg.SocketPath)
	}
}

func TestLoadCLIConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadCLIConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.UpdateInterval != defaultUpdateInterval {
		t.Errorf("UpdateInterval = %s, want %s", cfg.UpdateInterval, defaultUpdateInterval)
	}
	if cfg.SocketPath == "" {
		t.Error("SocketPath should default to the service socket")
	}
}
