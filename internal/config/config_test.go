package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/pageactions/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if !cfg.Live.Enabled || cfg.Live.Path != "/live" {
		t.Errorf("Live = %+v", cfg.Live)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("New().Validate() = %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	t.Setenv(EnvAddr, "")
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if !errors.HasCode(err, "PA301") {
		t.Fatalf("Load(empty dir) = %v, want PA301", err)
	}

	configJSON := `{
  "server": {"port": 8080, "host": "0.0.0.0"},
  "live": {"enabled": false},
  "log": {"level": "debug"}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Live.Enabled {
		t.Error("Live.Enabled should be false")
	}
	if cfg.Live.Path != "/live" {
		t.Errorf("Live.Path = %q, want default", cfg.Live.Path)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.URL() != "http://localhost:8080" {
		t.Errorf("URL() = %q", cfg.URL())
	}
	if level, _ := cfg.LogLevel(); level != slog.LevelDebug {
		t.Errorf("LogLevel() = %v", level)
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvAddr, "")
	tmpDir := t.TempDir()
	configYAML := `server:
  port: 9090
  shutdownTimeout: 3s
metrics:
  namespace: todos
client:
  reload: false
  headers:
    X-Team: core
`
	if err := os.WriteFile(filepath.Join(tmpDir, YAMLConfigFileName), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.ShutdownTimeout() != 3*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Metrics.Namespace != "todos" || !cfg.Metrics.Enabled {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Client.Reload || cfg.Client.Headers["X-Team"] != "core" {
		t.Errorf("Client = %+v", cfg.Client)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tmpDir := t.TempDir()

	bad := filepath.Join(tmpDir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := LoadFile(bad); !errors.HasCode(err, "PA302") {
		t.Errorf("LoadFile(bad json) = %v, want PA302", err)
	}

	invalid := filepath.Join(tmpDir, "invalid.yaml")
	os.WriteFile(invalid, []byte("server:\n  port: 70000\n"), 0644)
	if _, err := LoadFile(invalid); !errors.HasCode(err, "PA303") {
		t.Errorf("LoadFile(bad port) = %v, want PA303", err)
	}

	if _, err := LoadFile(filepath.Join(tmpDir, "missing.json")); !errors.HasCode(err, "PA301") {
		t.Errorf("LoadFile(missing) = %v, want PA301", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAddr, "127.0.0.1:4000")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Address() != "127.0.0.1:4000" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"duration", func(c *Config) { c.Client.Timeout = "soon" }, "client.timeout"},
		{"live path", func(c *Config) { c.Live.Path = "live" }, "live.path"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvAddr, "")
	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := New()
			cfg.Server.Port = 7000
			cfg.Live.Enabled = false

			path := filepath.Join(t.TempDir(), name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}
			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if loaded.Server.Port != 7000 || loaded.Live.Enabled {
				t.Errorf("loaded = %+v", loaded)
			}
		})
	}
}
