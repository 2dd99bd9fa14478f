package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"campus-cms/internal/cms"
	"campus-cms/internal/config"
	"campus-cms/internal/storage"
)

func main() {
	configFile := flag.String("config", "", "Path to the config file (default: ./cms.yaml if present)")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := config.NewLogger(os.Stdout, level)

	loader := config.NewLoader(*configFile, logger)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.Log.SlogLevel())

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path, logger)
	if err != nil {
		logger.Error("Failed to initialize store", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	app, err := newApplication(
		cms.NewManager(store, logger, cms.WithUploads(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, cfg.Uploads.MaxBytes)),
		logger,
		cfg.Uploads.URLPrefix,
	)
	if err != nil {
		logger.Error("Failed to initialize site", "error", err)
		os.Exit(1)
	}
	app.sanitize.Store(cfg.Render.Sanitize)
	loader.Watch(level, func(next *config.Config) {
		app.sanitize.Store(next.Render.Sanitize)
	})

	srv := &http.Server{
		Addr:     cfg.Server.Addr,
		Handler:  app.routes(),
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting public site", "address", srv.Addr, "uploads", cfg.Uploads.Dir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down public site")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Public site failed", "error", err)
		os.Exit(1)
	}
}
