// Package config loads clubhouse settings from a TOML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultConfigPath   = "~/.config/clubhouse/config.toml"
	defaultStorePath    = "~/.local/share/clubhouse/club.db"
	defaultServerStore  = "~/.local/share/clubhouse/kv.db"
	defaultServerAddr   = "127.0.0.1:8080"
	defaultPollInterval = 10 * time.Second
	defaultSyncTimeout  = 5 * time.Second
	defaultPushInterval = 2 * time.Second
	defaultMaxBody      = 8 << 20
	defaultServiceName  = "clubhouse"
	defaultLogLevel     = "info"
	defaultAdviceURL    = "https://api.openai.com/v1"
	defaultAdviceModel  = "gpt-4o-mini"
)

// Config is the resolved configuration. Paths are absolute.
type Config struct {
	// Path is the file the configuration was read from, or would have been.
	Path string

	StorePath string
	AppURL    string

	Sync      Sync
	Log       Log
	Advice    Advice
	Server    Server
	Telemetry Telemetry
}

// Sync configures the remote adapter.
type Sync struct {
	Endpoint     string
	PollInterval time.Duration
	Timeout      time.Duration
	// PushInterval is the minimum spacing between pushes.
	PushInterval time.Duration
}

// Log configures pkg/logging.
type Log struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Advice configures the chat-completions client.
type Advice struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Server configures the reference key-value server.
type Server struct {
	Addr         string
	StorePath    string
	MaxBodyBytes int64
}

// Telemetry configures tracing. An empty endpoint disables export.
type Telemetry struct {
	OTLPEndpoint string
	ServiceName  string
}

type fileConfig struct {
	StorePath string `toml:"store_path"`
	AppURL    string `toml:"app_url"`
	Sync      struct {
		Endpoint     string `toml:"endpoint"`
		PollInterval string `toml:"poll_interval"`
		Timeout      string `toml:"timeout"`
		PushRate     string `toml:"push_rate"`
	} `toml:"sync"`
	Log struct {
		Level      string `toml:"level"`
		File       string `toml:"file"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
	} `toml:"log"`
	Advice struct {
		BaseURL string `toml:"base_url"`
		APIKey  string `toml:"api_key"`
		Model   string `toml:"model"`
	} `toml:"advice"`
	Server struct {
		Addr         string `toml:"addr"`
		StorePath    string `toml:"store_path"`
		MaxBodyBytes int64  `toml:"max_body_bytes"`
	} `toml:"server"`
	Telemetry struct {
		OTLPEndpoint string `toml:"otlp_endpoint"`
		ServiceName  string `toml:"service_name"`
	} `toml:"telemetry"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Path:      mustExpand(defaultConfigPath),
		StorePath: mustExpand(defaultStorePath),
		Sync: Sync{
			PollInterval: defaultPollInterval,
			Timeout:      defaultSyncTimeout,
			PushInterval: defaultPushInterval,
		},
		Log:       Log{Level: defaultLogLevel, MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
		Advice:    Advice{BaseURL: defaultAdviceURL, Model: defaultAdviceModel},
		Server:    Server{Addr: defaultServerAddr, StorePath: mustExpand(defaultServerStore), MaxBodyBytes: defaultMaxBody},
		Telemetry: Telemetry{ServiceName: defaultServiceName},
	}
}

// Load reads the file at path (the default location when empty), falls back
// to defaults when it does not exist, and applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	data, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if data != nil {
		if err := cfg.merge(data); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

func (c *Config) merge(data []byte) error {
	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setPath(&c.StorePath, raw.StorePath)
	setString(&c.AppURL, raw.AppURL)

	setString(&c.Sync.Endpoint, raw.Sync.Endpoint)
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"sync.poll_interval", raw.Sync.PollInterval, &c.Sync.PollInterval},
		{"sync.timeout", raw.Sync.Timeout, &c.Sync.Timeout},
		{"sync.push_rate", raw.Sync.PushRate, &c.Sync.PushInterval},
	} {
		if err := setDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("parse config: %s: %w", d.name, err)
		}
	}

	setString(&c.Log.Level, raw.Log.Level)
	setPath(&c.Log.File, raw.Log.File)
	setPositive(&c.Log.MaxSizeMB, raw.Log.MaxSizeMB)
	setPositive(&c.Log.MaxBackups, raw.Log.MaxBackups)
	setPositive(&c.Log.MaxAgeDays, raw.Log.MaxAgeDays)

	setString(&c.Advice.BaseURL, raw.Advice.BaseURL)
	setString(&c.Advice.APIKey, raw.Advice.APIKey)
	setString(&c.Advice.Model, raw.Advice.Model)

	setString(&c.Server.Addr, raw.Server.Addr)
	setPath(&c.Server.StorePath, raw.Server.StorePath)
	if raw.Server.MaxBodyBytes > 0 {
		c.Server.MaxBodyBytes = raw.Server.MaxBodyBytes
	}

	setString(&c.Telemetry.OTLPEndpoint, raw.Telemetry.OTLPEndpoint)
	setString(&c.Telemetry.ServiceName, raw.Telemetry.ServiceName)
	return nil
}

// applyEnv overrides file values with CLUBHOUSE_* and a few conventional
// variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	setPath(&c.StorePath, get("CLUBHOUSE_STORE"))
	setString(&c.AppURL, get("CLUBHOUSE_APP_URL"))
	setString(&c.Sync.Endpoint, get("CLUBHOUSE_ENDPOINT"))
	if err := setDuration(&c.Sync.PollInterval, get("CLUBHOUSE_POLL_INTERVAL")); err != nil {
		return fmt.Errorf("CLUBHOUSE_POLL_INTERVAL: %w", err)
	}
	setString(&c.Log.Level, get("LOG_LEVEL"))
	setPath(&c.Log.File, get("LOG_FILE"))
	setString(&c.Advice.APIKey, get("ADVICE_API_KEY"))
	setString(&c.Advice.BaseURL, get("ADVICE_BASE_URL"))
	setString(&c.Server.Addr, get("CLUBHOUSE_SERVER_ADDR"))
	setPath(&c.Server.StorePath, get("CLUBHOUSE_SERVER_STORE"))
	setString(&c.Telemetry.OTLPEndpoint, get("OTEL_EXPORTER_OTLP_ENDPOINT"))
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.Sync.PollInterval < time.Second {
		return fmt.Errorf("sync.poll_interval %s is below one second", c.Sync.PollInterval)
	}
	if c.Sync.Timeout <= 0 {
		return fmt.Errorf("sync.timeout must be positive")
	}
	if c.Sync.PushInterval < 0 {
		return fmt.Errorf("sync.push_rate cannot be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setPath(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = mustExpand(v)
	}
}

func setPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// setDuration accepts Go durations ("10s") and bare seconds ("10").
func setDuration(dst *time.Duration, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		if env := strings.TrimSpace(os.Getenv("CLUBHOUSE_CONFIG")); env != "" {
			return expandPath(env)
		}
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
