package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"campus-cms/internal/cms"
	"campus-cms/internal/config"
	"campus-cms/internal/storage"
	"campus-cms/internal/templating"
)

// adminApplication holds the application-wide dependencies for the admin server.
type adminApplication struct {
	logger *slog.Logger
	cms    *cms.Manager

	// csrf wraps the API in nosurf protection.
	csrf bool
	// sanitize is flipped by config reloads.
	sanitize  atomic.Bool
	maxUpload int64

	// sessions holds files picked in open content forms.
	sessions *formSessions
}

// engine builds a renderer honouring the current sanitize setting.
func (app *adminApplication) engine() *templating.Engine {
	opts := []templating.EngineOption{templating.WithLogger(app.logger)}
	if app.sanitize.Load() {
		opts = append(opts, templating.WithSanitizer())
	}
	return templating.NewEngine(app.cms.GetStore(), opts...)
}

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

	manager := cms.NewManager(store, logger, cms.WithUploads(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, cfg.Uploads.MaxBytes))

	app := &adminApplication{
		logger:    logger,
		cms:       manager,
		csrf:      cfg.Admin.CSRF,
		maxUpload: cfg.Uploads.MaxBytes,
		sessions:  newFormSessions(formSessionTTL),
	}
	app.sanitize.Store(cfg.Render.Sanitize)

	loader.Watch(level, func(next *config.Config) {
		app.sanitize.Store(next.Render.Sanitize)
	})

	srv := &http.Server{
		Addr:     cfg.Admin.Addr,
		Handler:  app.routes(),
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting admin server", "address", srv.Addr, "storage", cfg.Storage.Driver, "csrf", app.csrf)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down admin server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Admin server failed", "error", err)
		os.Exit(1)
	}
}
