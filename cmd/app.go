package cmd

import (
	"fmt"
	"log/slog"

	"github.com/neuranote/neuranote/internal/backend"
	"github.com/neuranote/neuranote/internal/browse"
	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/config"
	"github.com/neuranote/neuranote/internal/events"
)

// app holds the collaborators every command is built from
type app struct {
	cfg     *config.Config
	client  *backend.Client
	bus     *events.Bus
	deps    capture.Deps
	browser *browse.Browser
}

func (o *rootOptions) load() (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.Debug("Config loaded", "path", o.configPath, "backend", cfg.Backend.BaseURL)

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, cfg.Backend.AnalyzeTimeout)
	bus := events.NewBus()
	return &app{
		cfg:    cfg,
		client: client,
		bus:    bus,
		deps: capture.Deps{
			Resolver: capture.NewFolderResolver(client, cfg.Capture.FolderPrefix, cfg.Capture.DefaultColor),
			Prompts:  capture.NewPromptBook(client),
			Analyzer: client,
			Bus:      bus,
			MaxBatch: cfg.Capture.MaxBatch,
			Workers:  cfg.Capture.DecodeWorkers,
		},
		browser: browse.NewBrowser(client, bus, cfg.Browse.DeleteWorkers),
	}, nil
}
