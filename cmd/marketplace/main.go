// Package main is the entry point for the marketplace API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketplace/internal/cache"
	"marketplace/internal/category"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/gazetteer"
	"marketplace/internal/geocoder"
	"marketplace/internal/handlers"
	"marketplace/internal/location"
	"marketplace/internal/metrics"
	"marketplace/internal/middleware"
	"marketplace/internal/router"
	"marketplace/internal/storage"
	"marketplace/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	collector := metrics.NewCollector()

	// The tree cache is optional; without Valkey every read hits Postgres.
	var treeCache category.TreeCache
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		slog.Warn("valkey unavailable, category tree cache disabled", "error", err)
	} else {
		defer valkeyClient.Close()
		treeCache = cache.NewCategoryTreeCache(valkeyClient, cfg.CategoryTreeTTL)
	}

	gaz, err := loadGazetteer(cfg)
	if err != nil {
		slog.Error("failed to load locations", "error", err)
		os.Exit(1)
	}

	provider := geocoder.New(geocoder.Config{
		APIKey:   cfg.GeocoderAPIKey,
		BaseURL:  cfg.GeocoderBaseURL,
		Language: cfg.GeocoderLanguage,
		Timeout:  cfg.GeocoderTimeout,
	}, nil)
	if !provider.Enabled() {
		slog.Warn("geocoder api key not set, external suggestions disabled")
	}

	categoryEngine := category.NewEngine(store.NewCategoryStore(db), treeCache, collector)
	locationEngine := location.NewEngine(
		gaz,
		store.NewCityStore(db),
		store.NewLocationCacheStore(db),
		provider,
		collector,
	)

	// Object storage is optional; icon uploads answer 503 without it.
	var icons handlers.IconStorage
	storageClient, err := storage.New(storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		PublicURL: cfg.S3PublicURL,
	})
	switch {
	case err != nil:
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	case storageClient == nil:
		slog.Warn("s3 storage not configured, icon uploads disabled")
	default:
		icons = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	r := router.New(router.Deps{
		Categories:     handlers.NewCategories(categoryEngine, icons),
		Locations:      handlers.NewLocations(locationEngine),
		Metrics:        collector,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// loadGazetteer reads the locations file, or the embedded defaults when
// none is configured, and applies the cache TTL override.
func loadGazetteer(cfg *config.Config) (*gazetteer.Config, error) {
	var (
		gaz *gazetteer.Config
		err error
	)
	if cfg.LocationsFile != "" {
		gaz, err = gazetteer.Load(cfg.LocationsFile)
	} else {
		gaz, err = gazetteer.Default()
	}
	if err != nil {
		return nil, err
	}
	if cfg.LocationCacheTTL > 0 {
		gaz.Settings.CacheTTL = cfg.LocationCacheTTL
	}
	slog.Info("locations loaded", "locations", len(gaz.Locations), "regions", len(gaz.Regions))
	return gaz, nil
}
