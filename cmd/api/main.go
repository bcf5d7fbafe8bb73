package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/website-analytics-api/internal/auth"
	"github.com/PratikDhanave/website-analytics-api/internal/config"
	"github.com/PratikDhanave/website-analytics-api/internal/httpserver"
	"github.com/PratikDhanave/website-analytics-api/internal/logging"
	"github.com/PratikDhanave/website-analytics-api/internal/metrics"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
	"github.com/PratikDhanave/website-analytics-api/internal/store"
)

// main boots the service: config → store → schema → key registry → HTTP server.
func main() {
	// Load runtime config from environment (STORE_DRIVER, DB_URL, API_KEYS, ...).
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to durable storage.
	backend, err := openStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("failed to connect to store")
	}
	defer backend.Close()

	// Ensure required tables/indexes exist so a fresh database is enough.
	if err := backend.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to apply schema")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var registry store.KeyRegistry = backend
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("failed to parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("could not reach redis, key cache will fall back to the store")
		}
		registry = auth.NewCachedRegistry(backend, rdb, cfg.APIKeyCacheTTL, m, logger)
	}

	if err := seedKeys(ctx, registry, cfg); err != nil {
		logger.WithError(err).Fatal("failed to seed api keys")
	}

	router := httpserver.NewRouter(cfg, httpserver.Dependencies{
		Store:    backend,
		Registry: registry,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.ListenAddr, "driver": cfg.StoreDriver}).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
		os.Exit(1)
	}
	logger.Info("server shut down gracefully")
}

func openStore(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	default:
		return store.NewPostgresStore(ctx, cfg.DBURL)
	}
}

// seedKeys registers the applications listed in API_KEYS.
func seedKeys(ctx context.Context, registry store.KeyRegistry, cfg config.Config) error {
	expiresAt := time.Now().Add(cfg.APIKeyTTL).UTC()
	for _, k := range cfg.APIKeys {
		err := registry.UpsertApplication(ctx, models.Application{
			AppID:     k.AppID,
			OwnerID:   k.OwnerID,
			APIKey:    k.APIKey,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
