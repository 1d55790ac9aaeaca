// Package main is the entrypoint for the RegexRelay server. One process hosts
// the HTTP intake surface, the validation worker pool, and the live event
// stream, all sharing a single authoritative job store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kiranshivaraju/regexrelay/internal/api"
	"github.com/kiranshivaraju/regexrelay/internal/api/handler"
	mw "github.com/kiranshivaraju/regexrelay/internal/api/middleware"
	"github.com/kiranshivaraju/regexrelay/internal/api/response"
	"github.com/kiranshivaraju/regexrelay/internal/broker"
	"github.com/kiranshivaraju/regexrelay/internal/cache"
	"github.com/kiranshivaraju/regexrelay/internal/config"
	"github.com/kiranshivaraju/regexrelay/internal/jobs"
	"github.com/kiranshivaraju/regexrelay/internal/notify"
	"github.com/kiranshivaraju/regexrelay/internal/store"
	"github.com/kiranshivaraju/regexrelay/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "default_pattern", cfg.Validation.DefaultPattern)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Connect to Redis; one client serves the broker and the rate limiter
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create broker and ensure the consumer group exists
	consumerName, err := os.Hostname()
	if err != nil {
		consumerName = "regexrelay"
	}
	jobBroker := broker.NewRedisBroker(redisClient, cfg.Redis.Stream, cfg.Redis.ConsumerGroup, consumerName)
	if err := jobBroker.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}
	slog.Info("broker ready", "stream", cfg.Redis.Stream, "group", cfg.Redis.ConsumerGroup)

	// 6. Create store, broadcaster, intake service
	pgStore := store.NewPostgresStore(pool)
	broadcaster := notify.NewBroadcaster()
	jobService := jobs.NewService(pgStore, jobBroker, broadcaster, cfg.Validation.DefaultPattern)

	// 7. Start the validation worker pool
	pipeline := worker.New(jobBroker, pgStore, broadcaster,
		worker.WithConcurrency(cfg.Worker.Concurrency),
		worker.WithProcessingDelay(cfg.Worker.ProcessingDelay),
	)
	pipeline.Start(ctx)

	// 8. Build router with dependencies
	redisCache := cache.NewRedisCache(redisClient)
	rateLimit := mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute)

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:    healthHandler(pgStore, redisCache),
		CreateJobHandler: handler.NewCreateJobHandler(jobService),
		ListJobsHandler:  handler.NewListJobsHandler(jobService),
		GetJobHandler:    handler.NewGetJobHandler(jobService),
		JobEventsHandler: handler.NewJobEventsHandler(broadcaster),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream endpoint holds connections open.
		IdleTimeout: 60 * time.Second,
		// Deriving request contexts from ctx ends open event streams on
		// shutdown; Server.Shutdown alone would wait on them forever.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown: stop accepting HTTP, then wait for in-flight
	// worker messages to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	pipeline.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and broker connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"redis":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["redis"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["redis"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
