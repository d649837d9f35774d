// Package config loads session settings for a gatomia workspace.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/eitatech/gatomia/pkg/storage"
)

// Config holds the runtime settings of a review session. Values come from
// .gatomia/config.yaml and are then overridden by GATOMIA_* variables.
type Config struct {
	RequestTimeout time.Duration `yaml:"request_timeout" env:"GATOMIA_REQUEST_TIMEOUT"`
	SyncTimeout    time.Duration `yaml:"sync_timeout" env:"GATOMIA_SYNC_TIMEOUT"`
	WatchDebounce  time.Duration `yaml:"watch_debounce" env:"GATOMIA_WATCH_DEBOUNCE"`
	LogLevel       string        `yaml:"log_level" env:"GATOMIA_LOG_LEVEL"`
	LogFormat      string        `yaml:"log_format" env:"GATOMIA_LOG_FORMAT"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		RequestTimeout: 10 * time.Second,
		SyncTimeout:    5 * time.Second,
		WatchDebounce:  300 * time.Millisecond,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads the workspace config file, if any, and applies environment
// overrides on top of it.
func Load(root string) (*Config, error) {
	cfg := Default()

	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the session cannot run with.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("sync_timeout must be positive, got %s", c.SyncTimeout)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
