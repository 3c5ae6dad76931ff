package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
port = "/dev/ttyACM0"
baud = 115200
emulate = false
queue_size = 32
write_timeout = "250ms"
write_retries = 5
interval = "1s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, nil); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.Port != "/dev/ttyACM0" {
		t.Errorf("Port = %q, want /dev/ttyACM0", cfg.Port)
	}
	if cfg.Baud != 115200 {
		t.Errorf("Baud = %d, want 115200", cfg.Baud)
	}
	if cfg.Emulate {
		t.Error("Emulate = true, want false")
	}
	if cfg.QueueSize != 32 {
		t.Errorf("QueueSize = %d, want 32", cfg.QueueSize)
	}
	if cfg.WriteTimeout != 250*time.Millisecond {
		t.Errorf("WriteTimeout = %v, want 250ms", cfg.WriteTimeout)
	}
	if cfg.WriteRetries != 5 {
		t.Errorf("WriteRetries = %d, want 5", cfg.WriteRetries)
	}
	if cfg.Interval != time.Second {
		t.Errorf("Interval = %v, want 1s", cfg.Interval)
	}
}

func TestLoadFileConfig_BadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`write_timeout = "soon"`), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, nil); err == nil {
		t.Error("ApplyFileConfig() error = nil, want duration parse error")
	}
}

func TestLoadFileConfig_Missing(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadFileConfig() error = nil, want not-exist error")
	}
}
