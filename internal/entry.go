// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/wildfrostsss/Blood-pressure/internal/api"
	"github.com/wildfrostsss/Blood-pressure/internal/diary"
	"github.com/wildfrostsss/Blood-pressure/internal/offline"
	"github.com/wildfrostsss/Blood-pressure/internal/sse"
	"github.com/wildfrostsss/Blood-pressure/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("assets_path", cfg.Assets.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data directory exists.
	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Initialize storage and the diary service.
	store, err := storage.NewFS(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	svc := diary.NewService(store, cfg.Diary.Location())

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Offline cache: SQLite-backed buckets over the static asset tree.
	cache, err := offline.OpenStore(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("init cache store: %w", err)
	}
	defer cache.Close()

	assets, err := offline.NewFSAssets(cfg.Assets.Path)
	if err != nil {
		return fmt.Errorf("init assets: %w", err)
	}

	manifest := offline.Manifest{
		StaticPaths: offline.DefaultStaticPaths(),
		Vendor:      cfg.Vendor,
	}
	mgr := offline.NewManager(cache, assets, manifest,
		offline.WithBucketPrefix(cfg.Cache.BucketPrefix),
		offline.WithAutoActivate(cfg.Cache.AutoActivate),
		offline.WithUpdateCallback(func(bucket string) {
			broker.PublishUpdateAvailable(bucket)
		}),
		offline.WithLogger(logger),
	)
	defer mgr.Close()

	// Install the current asset version on boot. A failed install is not
	// fatal; the handler falls back to the origin until the watcher
	// retries.
	if bucket, err := mgr.Install(ctx); err != nil {
		logger.Warn("initial cache install failed", slog.String("error", err.Error()))
	} else {
		logger.Info("offline cache installed", slog.String("bucket", bucket))
	}

	// Build API router.
	apiRouter := api.NewRouter(svc, mgr, broker, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Everything else is the PWA, served cache-first from the active
	// bucket with the asset tree as origin.
	r.NotFound(offline.NewHandler(mgr, nil).ServeHTTP)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the asset tree and reinstall on changes.
	g.Go(func() error {
		if err := offline.Watch(gCtx, mgr, cfg.Assets.Path, logger); err != nil {
			logger.Warn("asset watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
