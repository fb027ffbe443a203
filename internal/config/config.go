// Package config loads the neuranote client configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "neuranote.yaml"

// Config holds all configuration for the client.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Capture CaptureConfig `yaml:"capture"`
	Browse  BrowseConfig  `yaml:"browse"`
	Serve   ServeConfig   `yaml:"serve"`
	Watch   WatchConfig   `yaml:"watch"`
}

// BackendConfig holds the analysis backend connection settings.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// AnalyzeTimeout applies to POST /analyze only. Multi-page analysis can
	// take minutes, so it is never allowed below MinAnalyzeTimeout.
	AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
}

// CaptureConfig holds page staging and folder resolution settings.
type CaptureConfig struct {
	MaxBatch      int    `yaml:"max_batch"`
	DecodeWorkers int    `yaml:"decode_workers"`
	DefaultColor  string `yaml:"default_color"`
	FolderPrefix  string `yaml:"folder_prefix"`
}

// BrowseConfig holds record browsing settings.
type BrowseConfig struct {
	DeleteWorkers int `yaml:"delete_workers"`
}

// ServeConfig holds the local gateway settings.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// WatchConfig holds scan directory watch settings.
type WatchConfig struct {
	Idle time.Duration `yaml:"idle"`
}

// Load reads the config file at path and applies defaults and environment
// overrides. A missing file is not an error: defaults are used instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ErrExists is returned by Init when the config file is already there.
var ErrExists = errors.New("config file already exists")

// Init writes a config file holding the defaults. An existing file is only
// replaced when force is set.
func Init(path string, force bool) (*Config, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%s: %w (use --force to replace it)", path, ErrExists)
		}
	}
	var cfg Config
	ApplyDefaults(&cfg)
	if err := Save(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("NEURANOTE_API_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("NEURANOTE_ANALYZE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid NEURANOTE_ANALYZE_TIMEOUT %q: %w", v, err)
		}
		cfg.Backend.AnalyzeTimeout = d
	}
	return nil
}
