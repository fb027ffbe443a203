package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("NEURANOTE_API_URL", "")
	t.Setenv("NEURANOTE_ANALYZE_TIMEOUT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != DefaultBaseURL {
		t.Errorf("Expected %s, got %s", DefaultBaseURL, cfg.Backend.BaseURL)
	}
	if cfg.Backend.AnalyzeTimeout != MinAnalyzeTimeout {
		t.Errorf("Expected %v, got %v", MinAnalyzeTimeout, cfg.Backend.AnalyzeTimeout)
	}
	if cfg.Capture.MaxBatch != DefaultMaxBatch || cfg.Capture.FolderPrefix != DefaultFolderPrefix {
		t.Errorf("Unexpected capture defaults %+v", cfg.Capture)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neuranote.yaml")
	content := `backend:
  base_url: http://backend:9000
  timeout: 10s
  analyze_timeout: 30s
capture:
  max_batch: 3
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("NEURANOTE_API_URL", "")
	t.Setenv("NEURANOTE_ANALYZE_TIMEOUT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend:9000" {
		t.Errorf("Expected base URL from file, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", cfg.Backend.Timeout)
	}
	if cfg.Backend.AnalyzeTimeout != MinAnalyzeTimeout {
		t.Errorf("Expected analyze timeout clamped to %v, got %v", MinAnalyzeTimeout, cfg.Backend.AnalyzeTimeout)
	}
	if cfg.Capture.MaxBatch != 3 {
		t.Errorf("Expected max batch 3, got %d", cfg.Capture.MaxBatch)
	}

	t.Setenv("NEURANOTE_API_URL", "http://override:1")
	t.Setenv("NEURANOTE_ANALYZE_TIMEOUT", "10m")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://override:1" {
		t.Errorf("Expected env override, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.AnalyzeTimeout != 10*time.Minute {
		t.Errorf("Expected 10m, got %v", cfg.Backend.AnalyzeTimeout)
	}

	t.Setenv("NEURANOTE_ANALYZE_TIMEOUT", "soon")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("NEURANOTE_API_URL", "")
	t.Setenv("NEURANOTE_ANALYZE_TIMEOUT", "")
	path := filepath.Join(t.TempDir(), "out.yaml")

	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Serve.Addr = ":9999"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if loaded.Serve.Addr != ":9999" || loaded.Watch.Idle != DefaultWatchIdle {
		t.Errorf("Unexpected loaded config %+v", loaded)
	}
}

func TestInitWritesDefaults(t *testing.T) {
	t.Setenv("NEURANOTE_API_URL", "")
	t.Setenv("NEURANOTE_ANALYZE_TIMEOUT", "")
	path := filepath.Join(t.TempDir(), "neuranote.yaml")

	if _, err := Init(path, false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != DefaultBaseURL || cfg.Watch.Idle != DefaultWatchIdle || cfg.Serve.Addr != DefaultServeAddr {
		t.Errorf("Expected defaults to round trip, got %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("capture:\n  max_batch: 2\n"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tests := []struct {
		force    bool
		wantErr  bool
		maxBatch int
	}{
		{false, true, 2},
		{true, false, DefaultMaxBatch},
	}
	for _, tt := range tests {
		_, err := Init(path, tt.force)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Expected error=%v with force=%v, got %v", tt.wantErr, tt.force, err)
		}
		if tt.wantErr && !errors.Is(err, ErrExists) {
			t.Errorf("Expected ErrExists, got %v", err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Capture.MaxBatch != tt.maxBatch {
			t.Errorf("Expected max batch %d with force=%v, got %d", tt.maxBatch, tt.force, cfg.Capture.MaxBatch)
		}
	}
}
