package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	yaml "go.yaml.in/yaml/v3"
)

// ServerConfig defines how the presence backend should run.
type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	DBPath          string  `yaml:"db_path"`
	JournalDisabled bool    `yaml:"journal_disabled"`
	LogLevel        string  `yaml:"log_level"`
	LogJSON         bool    `yaml:"log_json"`
	LoginRatePerSec float64 `yaml:"login_rate_per_sec"`
	LoginBurst      int     `yaml:"login_burst"`
}

// LoadConfig reads a YAML config file. Unknown keys are an error so typos
// surface immediately.
func LoadConfig(path string) (ServerConfig, error) {
	var cfg ServerConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := unmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func unmarshalStrict(data []byte, out *ServerConfig) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return err
	}
	return nil
}

// ApplyDefaults fills in anything the flags or config file left unset.
func (c *ServerConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LoginRatePerSec == 0 {
		c.LoginRatePerSec = 5
	}
	if c.LoginBurst == 0 {
		c.LoginBurst = 10
	}
}

// DefaultDBPath returns a per-user data path for the activity journal.
func DefaultDBPath() string {
	if env := os.Getenv("WHOSON_DB_PATH"); env != "" {
		return env
	}
	if env := os.Getenv("WHOSON_DATA_DIR"); env != "" {
		return filepath.Join(env, "whoson.db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "whoson", "whoson.db")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Whoson", "whoson.db")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Whoson", "whoson.db")
		}
		return filepath.Join(home, ".local", "share", "whoson", "whoson.db")
	}
	return filepath.Join(".", ".whoson", "whoson.db")
}
