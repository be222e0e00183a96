package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nexusbuy-analytics/internal/analytics"
	"nexusbuy-analytics/internal/cache"
	"nexusbuy-analytics/internal/config"
	"nexusbuy-analytics/internal/handlers"
	"nexusbuy-analytics/internal/httpserver"
	"nexusbuy-analytics/internal/metrics"
	"nexusbuy-analytics/internal/store/mongo"
	"nexusbuy-analytics/internal/store/postgres"
	"nexusbuy-analytics/pkg/logging/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("analytics exited with error: %v", err)
	}
}

func run() error {
	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ----- Logger -----
	logger, err := logging.NewLogger(logging.Options{
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Service: "nexusbuy-analytics",
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("postgres_host", cfg.PostgresHost),
		zap.String("mongo_host", cfg.MongoHost),
		zap.Bool("coalesce_misses", cfg.CoalesceMisses),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.AdapterTimeout)
	defer cancelStart()

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			// Failures surface to the service, which falls back to origin.
			MaxRetries: -1,
		})
		defer redisClient.Close()

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(startCtx).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	}

	// ----- Cache -----
	rawStore := cache.NewStore(cache.Config{
		Backend: cfg.CacheBackend,
		Prefix:  cfg.CachePrefix,
	}, redisClient, nil)
	if closer, ok := rawStore.(io.Closer); ok {
		defer closer.Close()
	}
	store := cache.NewLoggingStore(rawStore)

	// ----- Relational store -----
	pg, err := postgres.Open(startCtx, cfg.Postgres())
	if err != nil {
		logger.Error("postgres connection failed", zap.Error(err))
		return err
	}
	defer pg.Close()
	logger.Info("postgres connection established", zap.String("host", cfg.PostgresHost))

	// ----- Document store -----
	docs, err := mongo.Connect(startCtx, cfg.Mongo())
	if err != nil {
		logger.Error("mongo connection failed", zap.Error(err))
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AdapterTimeout)
		defer cancel()
		if err := docs.Close(ctx); err != nil {
			logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	logger.Info("mongo connection established", zap.String("host", cfg.MongoHost))

	// ----- Service + handlers -----
	svc := analytics.NewService(store, pg, docs, analytics.Options{
		CoalesceMisses: cfg.CoalesceMisses,
		LoadTimeout:    cfg.AdapterTimeout,
	})

	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, httpserver.Deps{
		Analytics: handlers.NewAnalyticsHandler(svc),
		Cache:     handlers.NewCacheHandler(svc),
		Health: map[string]handlers.Pinger{
			"cache":    store,
			"postgres": pg,
			"mongo":    docs,
		},
		RequestTimeout: cfg.RequestTimeout,
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting analytics service", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	case <-stop:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
