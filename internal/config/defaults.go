package config

import "time"

const (
	DefaultBaseURL       = "http://127.0.0.1:8000"
	DefaultTimeout       = 30 * time.Second
	MinAnalyzeTimeout    = 180 * time.Second
	DefaultMaxBatch      = 5
	DefaultDecodeWorkers = 4
	DefaultDeleteWorkers = 4
	DefaultFolderColor   = "#0EA5E9"
	DefaultFolderPrefix  = "Meeting_"
	DefaultServeAddr     = ":8888"
	DefaultWatchIdle     = 5 * time.Second
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBaseURL
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = DefaultTimeout
	}
	if cfg.Backend.AnalyzeTimeout < MinAnalyzeTimeout {
		cfg.Backend.AnalyzeTimeout = MinAnalyzeTimeout
	}
	if cfg.Capture.MaxBatch <= 0 {
		cfg.Capture.MaxBatch = DefaultMaxBatch
	}
	if cfg.Capture.DecodeWorkers <= 0 {
		cfg.Capture.DecodeWorkers = DefaultDecodeWorkers
	}
	if cfg.Capture.DefaultColor == "" {
		cfg.Capture.DefaultColor = DefaultFolderColor
	}
	if cfg.Capture.FolderPrefix == "" {
		cfg.Capture.FolderPrefix = DefaultFolderPrefix
	}
	if cfg.Browse.DeleteWorkers <= 0 {
		cfg.Browse.DeleteWorkers = DefaultDeleteWorkers
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = DefaultServeAddr
	}
	if cfg.Watch.Idle <= 0 {
		cfg.Watch.Idle = DefaultWatchIdle
	}
}
