package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/pageactions/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "pageactions.json"

	// YAMLConfigFileName is the name of the YAML configuration file.
	YAMLConfigFileName = "pageactions.yaml"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// EnvAddr overrides the listen address ("host:port").
	EnvAddr = "PAGEACTIONS_ADDR"

	// EnvLogLevel overrides the log level.
	EnvLogLevel = "PAGEACTIONS_LOG_LEVEL"
)

// Config represents the complete pageactions configuration.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Live contains WebSocket invalidation configuration.
	Live LiveConfig `json:"live,omitempty" yaml:"live,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	// Client contains configuration for the submit command.
	Client ClientConfig `json:"client,omitempty" yaml:"client,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// MaxFormSize limits action request bodies in bytes.
	MaxFormSize int64 `json:"maxFormSize,omitempty" yaml:"maxFormSize,omitempty"`
}

// LiveConfig contains WebSocket invalidation settings.
type LiveConfig struct {
	// Enabled mounts the live hub.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is where the hub is mounted.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// PingInterval is the keepalive interval (e.g., "30s").
	PingInterval string `json:"pingInterval,omitempty" yaml:"pingInterval,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled mounts the metrics endpoint and records dispatches.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is where the metrics endpoint is mounted.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Namespace prefixes metric names.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled traces dispatches with the global tracer provider.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// TracerName is the tracer name.
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// ClientConfig contains settings for submitting actions from the CLI.
type ClientConfig struct {
	// Timeout bounds one submission (e.g., "10s").
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Reload fetches the page data after a successful submission.
	Reload bool `json:"reload" yaml:"reload"`

	// Headers are sent with every action request.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: "10s",
			MaxFormSize:     10 << 20,
		},
		Live: LiveConfig{
			Enabled:      true,
			Path:         "/live",
			PingInterval: "30s",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "pageactions",
		},
		Tracing: TracingConfig{
			TracerName: "pageactions",
		},
		Client: ClientConfig{
			Timeout: "10s",
			Reload:  true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// pageactions.json, then pageactions.yaml and pageactions.yml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName, "pageactions.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("PA301").
		WithDetail("No " + ConfigFileName + " or " + YAMLConfigFileName + " found in " + dir)
}

// LoadOrDefault is like Load but returns defaults when no file exists.
// Environment overrides are applied either way.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.HasCode(err, "PA301") {
		cfg = New()
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// LoadFile reads configuration from the specified file path. The format
// follows the extension: .yaml and .yml are YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("PA301").WithDetail("No config file at " + path)
		}
		return nil, errors.New("PA302").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("PA302").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid " + formatName(path))
	}

	cfg.configPath = path
	cfg.applyDefaults()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "YAML"
	default:
		return "JSON"
	}
}

// SaveTo writes the configuration as JSON or YAML, following the extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("PA302").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("PA302").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Server.MaxFormSize == 0 {
		c.Server.MaxFormSize = d.Server.MaxFormSize
	}

	if c.Live.Path == "" {
		c.Live.Path = d.Live.Path
	}
	if c.Live.PingInterval == "" {
		c.Live.PingInterval = d.Live.PingInterval
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = d.Metrics.Path
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}

	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}

	if c.Client.Timeout == "" {
		c.Client.Timeout = d.Client.Timeout
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if addr := os.Getenv(EnvAddr); addr != "" {
		host, port, err := net.SplitHostPort(addr)
		if err == nil {
			c.Server.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				c.Server.Port = p
			}
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("PA303").
			WithDetail("server.port must be between 0 and 65535")
	}
	for field, value := range map[string]string{
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"live.pingInterval":      c.Live.PingInterval,
		"client.timeout":         c.Client.Timeout,
	} {
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return errors.New("PA303").
				WithDetail(field + " must be a duration such as \"10s\", got " + strconv.Quote(value))
		}
	}
	for _, p := range []struct{ field, value string }{
		{"live.path", c.Live.Path},
		{"metrics.path", c.Metrics.Path},
	} {
		if !strings.HasPrefix(p.value, "/") {
			return errors.New("PA303").WithDetail(p.field + " must start with /")
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return errors.New("PA303").WithDetail("log.level: " + err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("PA303").WithDetail("log.format must be text or json")
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the server's base URL.
func (c *Config) URL() string {
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Server.Port))
}

// ShutdownTimeout returns the parsed shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// PingInterval returns the parsed live ping interval.
func (c *Config) PingInterval() time.Duration {
	d, _ := time.ParseDuration(c.Live.PingInterval)
	return d
}

// ClientTimeout returns the parsed client timeout.
func (c *Config) ClientTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Client.Timeout)
	return d
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// Logger builds the logger described by the configuration.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
