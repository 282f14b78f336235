package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/stitcher/internal/config"
	"github.com/lehigh-university-libraries/stitcher/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background daemon that stitches and saves images",
		Long: `Starts the long-running daemon other stitcher commands send their work to.

The daemon fetches images without credentials, stitches them, saves the
results below the download directory and keeps track of injected pages.
While it shuts down it refuses new messages so clients finish the work
in-process instead.`,
		Example: `  # Start the daemon on the default address
  stitcher serve

  # Listen elsewhere and save into ~/Pictures
  stitcher serve --addr :9000 --output ~/Pictures`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			collector, err := newCollector(cfg)
			if err != nil {
				return err
			}
			defer closeCollector(collector)

			// background naming has no host folder
			handler := handlers.New(newExecutor(cfg), collector, cfg.Output, handlers.WithJobHistory(cfg.JobHistory))

			mux := http.NewServeMux()
			handler.Routes(mux)

			server := &http.Server{
				Addr:    cfg.Addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Stitcher daemon available", "addr", cfg.Addr, "output", cfg.Output)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				handler.Drain()
				// Give in-flight jobs 5 seconds to finish
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

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (default "+config.DefaultAddr+")")
	cmd.Flags().Bool("render", false, "Scan pages in headless Chromium instead of parsing their HTML")
	cmd.Flags().StringSlice("match", nil, "Only keep images whose URL matches one of these glob patterns")

	return cmd
}
