package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/config"
	"github.com/xqvvu/yokg/internal/di"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := opts.loader()
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("watch") {
				watch = cfg.Environment == config.Development
			}
			return serve(cmd.Context(), loader, cfg, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "reload log level and cache TTLs when config files change (default on in development)")
	return cmd
}

func serve(parent context.Context, loader *config.Loader, cfg *config.Config, watch bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer container.Close()
	logger := container.Logger()

	if watch {
		watcher, err := config.NewWatcher(loader, cfg, logger)
		if err != nil {
			logger.Warn("Config watcher disabled", zap.Error(err))
		} else {
			watcher.OnChange(container.ApplyConfig)
			defer watcher.Stop()
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      container.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("graph", cfg.Graph.Provider),
			zap.String("cache", cfg.Cache.Provider),
			zap.Strings("config", cfg.LoadedFrom),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
