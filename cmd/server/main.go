package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/incident-subscriptions/internal/api"
	"github.com/Priya8975/incident-subscriptions/internal/config"
	"github.com/Priya8975/incident-subscriptions/internal/engine"
	"github.com/Priya8975/incident-subscriptions/internal/registry"
	"github.com/Priya8975/incident-subscriptions/internal/store"
	ws "github.com/Priya8975/incident-subscriptions/internal/websocket"
	"github.com/Priya8975/incident-subscriptions/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	rdb := redisStore.Client()
	queue := engine.NewQueueSink(rdb, logger)
	cb := engine.NewCircuitBreaker(rdb, cfg.CBFailureThreshold, cfg.CBCooldown, logger)
	rl := engine.NewRateLimiter(rdb, cfg.RateLimitPerSecond, logger)

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	reg := registry.New(queue, logger)

	deliverer := worker.NewDeliverer(pgStore, cb, rl, queue, hub, logger)
	pool := worker.NewPool(cfg.NumWorkers, deliverer, logger)
	pool.Start(ctx)

	dispatcher := worker.NewDispatcher(rdb, pool, cfg.PollInterval, logger)
	dispatcherDone := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(dispatcherDone)
	}()

	router := api.NewRouter(api.Dependencies{
		Registry:   reg,
		Deliveries: pgStore,
		Queue:      queue,
		Circuits:   cb,
		Feed:       hub,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	<-dispatcherDone
	pool.Stop()

	logger.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
