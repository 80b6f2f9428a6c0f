package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Robot.DefaultPort != 5007 {
		t.Errorf("expected default port 5007, got %d", cfg.Robot.DefaultPort)
	}
	if cfg.Motion.SettleShort.Std() != 300*time.Millisecond {
		t.Errorf("expected 300ms settle, got %v", cfg.Motion.SettleShort.Std())
	}
	if cfg.OpLog.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %q", cfg.OpLog.Backend)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
robot:
  default_host: 10.1.2.3
  default_timeout: 5s
motion:
  settle_long: 1s
oplog:
  backend: sqlite
  path: /tmp/ops.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Robot.DefaultHost != "10.1.2.3" {
		t.Errorf("host not overridden: %q", cfg.Robot.DefaultHost)
	}
	if cfg.Robot.DefaultTimeout.Std() != 5*time.Second {
		t.Errorf("timeout not overridden: %v", cfg.Robot.DefaultTimeout.Std())
	}
	if cfg.Motion.SettleLong.Std() != time.Second {
		t.Errorf("settle_long not overridden: %v", cfg.Motion.SettleLong.Std())
	}
	// Untouched fields keep defaults.
	if cfg.Robot.DefaultPort != 5007 {
		t.Errorf("default port lost: %d", cfg.Robot.DefaultPort)
	}
	if cfg.OpLog.Backend != BackendSQLite || cfg.OpLog.Path != "/tmp/ops.db" {
		t.Errorf("oplog not overridden: %+v", cfg.OpLog)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "motion:\n  settle_short: soon\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.OpLog.Backend = "redis" }, true},
		{"sqlite without path", func(c *Config) { c.OpLog.Backend = BackendSQLite }, true},
		{"sqlite with path", func(c *Config) {
			c.OpLog.Backend = BackendSQLite
			c.OpLog.Path = "/tmp/ops.db"
		}, false},
		{"bad port", func(c *Config) { c.Robot.DefaultPort = 0 }, true},
		{"bad gripper max", func(c *Config) { c.Motion.GripperMaxM = -1 }, true},
		{"http without addr", func(c *Config) {
			c.Server.HTTP = true
			c.Server.HTTPAddr = ""
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
