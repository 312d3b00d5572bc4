// Package config handles TOML configuration for rebel.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the config file name looked up in the home directory.
const DefaultFile = ".rebel.toml"

// Config is the root configuration structure.
type Config struct {
	AWS     AWSConfig     `toml:"aws"`
	Stacks  StacksConfig  `toml:"stacks"`
	Monitor MonitorConfig `toml:"monitor"`
	Cleanup CleanupConfig `toml:"cleanup"`
	OTEL    OTELConfig    `toml:"otel"`
	Log     LogConfig     `toml:"log"`
}

// AWSConfig holds AWS provider settings.
type AWSConfig struct {
	Region  string `toml:"region"`
	Profile string `toml:"profile"`
}

// StacksConfig holds stack creation settings.
type StacksConfig struct {
	ProvenanceTagKey   string            `toml:"provenance_tag_key"`
	ProvenanceTagValue string            `toml:"provenance_tag_value"`
	Capabilities       []string          `toml:"capabilities"`
	DefaultTags        map[string]string `toml:"default_tags"`
	ExcludeTags        map[string]string `toml:"exclude_tags"`
}

// Provenance returns the tag every created stack carries, or nil when no
// tag key is configured.
func (s StacksConfig) Provenance() map[string]string {
	if s.ProvenanceTagKey == "" {
		return nil
	}
	return map[string]string{s.ProvenanceTagKey: s.ProvenanceTagValue}
}

// MonitorConfig holds stack polling settings.
type MonitorConfig struct {
	PollIntervalStr string `toml:"poll_interval"`
	PollInterval    time.Duration
	StatusWidth     int `toml:"status_width"`
}

// CleanupConfig holds teardown settings.
type CleanupConfig struct {
	DryRun     bool   `toml:"dry_run"`
	MaxWaitStr string `toml:"max_wait"`
	MaxWait    time.Duration
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `toml:"endpoint"`
	Insecure    bool          `toml:"insecure"`
	ServiceName string        `toml:"service_name"`
	Traces      TracesConfig  `toml:"traces"`
	Metrics     MetricsConfig `toml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate float64 `toml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultPath returns ~/.rebel.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultFile), nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	// Defaults always parse.
	_ = parseDurations(cfg)
	return cfg
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOptional loads path like Load, but a missing file yields the
// defaults.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func applyDefaults(cfg *Config) {
	if cfg.Stacks.ProvenanceTagKey == "" {
		cfg.Stacks.ProvenanceTagKey = "created-by"
	}
	if cfg.Stacks.ProvenanceTagValue == "" {
		cfg.Stacks.ProvenanceTagValue = "rebel"
	}
	if cfg.Monitor.PollIntervalStr == "" {
		cfg.Monitor.PollIntervalStr = "5s"
	}
	if cfg.Monitor.StatusWidth == 0 {
		cfg.Monitor.StatusWidth = 100
	}
	if cfg.Cleanup.MaxWaitStr == "" {
		cfg.Cleanup.MaxWaitStr = "30m"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "rebel"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseDurations(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Monitor.PollIntervalStr)
	if err != nil {
		return fmt.Errorf("parse poll_interval %q: %w", cfg.Monitor.PollIntervalStr, err)
	}
	cfg.Monitor.PollInterval = d

	d, err = time.ParseDuration(cfg.Cleanup.MaxWaitStr)
	if err != nil {
		return fmt.Errorf("parse max_wait %q: %w", cfg.Cleanup.MaxWaitStr, err)
	}
	cfg.Cleanup.MaxWait = d
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws: region required")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor: poll_interval must be positive (got %v)", c.Monitor.PollInterval)
	}
	if c.Monitor.StatusWidth < 10 {
		return fmt.Errorf("monitor: status_width must be at least 10 (got %d)", c.Monitor.StatusWidth)
	}
	if c.Cleanup.MaxWait <= 0 {
		return fmt.Errorf("cleanup: max_wait must be positive (got %v)", c.Cleanup.MaxWait)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	return nil
}
