package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whoson.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
addr: ":9090"
db_path: "/tmp/whoson-test.db"
log_level: debug
log_json: true
login_rate_per_sec: 2.5
login_burst: 4
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.DBPath != "/tmp/whoson-test.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.LogLevel != "debug" || !cfg.LogJSON {
		t.Fatalf("logging config: %+v", cfg)
	}
	if cfg.LoginRatePerSec != 2.5 || cfg.LoginBurst != 4 {
		t.Fatalf("rate config: %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "addr: \":9090\"\nlisten_port: 9090\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an unknown key")
	} else if !strings.Contains(err.Error(), "listen_port") {
		t.Fatalf("error should name the unknown key: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg ServerConfig
	cfg.ApplyDefaults()
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.DBPath == "" {
		t.Fatal("db path should default")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.LoginRatePerSec != 5 || cfg.LoginBurst != 10 {
		t.Fatalf("rate defaults: %+v", cfg)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := ServerConfig{Addr: ":7777", LogLevel: "warn", LoginRatePerSec: 1, LoginBurst: 1}
	cfg.ApplyDefaults()
	if cfg.Addr != ":7777" || cfg.LogLevel != "warn" || cfg.LoginRatePerSec != 1 || cfg.LoginBurst != 1 {
		t.Fatalf("explicit values overridden: %+v", cfg)
	}
}
