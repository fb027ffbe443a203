package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/neuranote/neuranote/internal/handlers"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local JSON gateway",
		Long: `Starts a local HTTP gateway exposing capture sessions and the record
browser as a JSON API, for front ends that should not talk to the analysis
backend directly.`,
		Example: `  # Start on the configured address (default :8888)
  neuranote serve

  # Start on a custom address
  neuranote serve --addr 127.0.0.1:3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}

			detach := a.browser.Attach(cmd.Context())
			defer detach()
			if err := a.deps.Prompts.Load(cmd.Context()); err != nil {
				slog.Warn("Failed to load saved prompts", "err", err)
			}
			if err := a.browser.Refresh(cmd.Context()); err != nil {
				slog.Warn("Initial folder load failed", "err", err)
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           handlers.New(a.deps, a.browser).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("NeuraNote gateway available", "addr", addr, "backend", a.cfg.Backend.BaseURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (default from config)")

	return cmd
}
