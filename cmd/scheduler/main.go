package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gigwork_maps/internal/events"
	"gigwork_maps/internal/geocode"
	"gigwork_maps/internal/jobs"
	"gigwork_maps/internal/scheduler"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/db"
	"gigwork_maps/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	var cache geocode.Cache = geocode.NewMemoryCache(nil)
	if redisClient, err := scheduler.NewRedisClient(cfg); err == nil {
		defer func() { _ = redisClient.Close() }()
		cache = geocode.NewRedisCache(redisClient, "geocode:")
	} else {
		log.Warn("geocode cache falls back to memory", "error", err)
	}
	geocoder := geocode.NewCachedGeocoder(geocode.NewClient(cfg, log), cache, cfg.GetGeocodeCacheTTL(), log)

	jobRepo := jobs.NewRepository(pool)
	jobService := jobs.NewService(jobRepo, geocoder, eventBus, clockwork.NewRealClock(), log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	sweepInterval := getDurationEnv("JOB_GEOCODE_SWEEP_INTERVAL", 5*time.Minute)
	sweeper := scheduler.NewJobGeocodeSweeper(jobRepo, client, clockwork.NewRealClock(), sweepInterval, log)
	sweeper.SetBatchSize(getPositiveIntEnv("JOB_GEOCODE_SWEEP_BATCH", 50))
	go sweeper.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, jobService, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getPositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
