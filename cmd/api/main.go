package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gigwork_maps/internal/events"
	"gigwork_maps/internal/geocode"
	apphttp "gigwork_maps/internal/http"
	"gigwork_maps/internal/http/router"
	"gigwork_maps/internal/jobs"
	"gigwork_maps/internal/locationstore"
	"gigwork_maps/internal/locationstore/broker"
	"gigwork_maps/internal/maps"
	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/internal/routing"
	"gigwork_maps/internal/scheduler"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/db"
	"gigwork_maps/platform/logger"
	"gigwork_maps/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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

	redisClient, closeRedis := initRedis(ctx, cfg, log)
	defer closeRedis()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	closeBroker := initBroker(cfg, eventBus, log)
	defer closeBroker()

	// ========================================================================
	// Domain Layer
	// ========================================================================

	geocoder := newGeocoder(cfg, redisClient, log)
	routeEngine := routing.NewEngine(routing.NewClient(cfg, log), log)
	surfaces := mapsurface.NewRegistry(routeEngine, mapsurface.NewHub(log), nil, log)
	defer surfaces.Hub().Close()

	locationModule := locationstore.NewModule(pool, redisClient, eventBus, val, log)
	jobsModule := jobs.NewModule(pool, geocoder, eventBus, log)
	mapsModule := maps.NewModule(maps.Deps{
		Geocoder:     geocoder,
		Engine:       routeEngine,
		Registry:     surfaces,
		Bus:          eventBus,
		Validator:    val,
		DefaultLimit: cfg.GetGeocodeLimit(),
		Logger:       log,
	})

	enqueuer, closeEnqueuer := initGeocodeQueue(cfg, log)
	defer closeEnqueuer()
	if enqueuer != nil {
		jobsModule.Service().SetEnqueuer(enqueuer)
	}

	eventBus.Subscribe(events.SurfaceUpdated{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.SurfaceUpdated); ok {
			log.Debug("map surface updated", "surface", ev.SurfaceID, "revision", ev.Revision, "markers", ev.MarkerCount, "fallback", ev.Fallback)
		}
		return nil
	}))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			locationModule,
			mapsModule,
			jobsModule,
		},
	}

	engine := router.New(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		surfaces.Hub().Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (redis.UniversalClient, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; using in-process caches")
		return nil, func() {}
	}

	client, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("invalid REDIS_URL; using in-process caches", "error", err)
		return nil, func() {}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis not reachable yet", "error", err)
	}
	return client, func() { _ = client.Close() }
}

func initBroker(cfg config.BrokerConfig, bus events.Bus, log *logger.Logger) func() {
	if !cfg.IsBrokerEnabled() {
		log.Info("AMQP_URL not configured; location fan-out disabled")
		return func() {}
	}

	b, err := broker.New(cfg, log)
	if err != nil {
		log.Error("failed to connect to location broker", "error", err)
		return func() {}
	}
	bus.Subscribe(events.LocationUpdated{}.EventName(), b)
	return func() { _ = b.Close() }
}

func initGeocodeQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; job geocoding runs inline")
		return nil, func() {}
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize geocode queue client", "error", err)
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}

func newGeocoder(cfg config.GeocodeConfig, redisClient redis.UniversalClient, log *logger.Logger) geocode.Geocoder {
	var cache geocode.Cache = geocode.NewMemoryCache(nil)
	if redisClient != nil {
		cache = geocode.NewRedisCache(redisClient, "geocode:")
	}
	return geocode.NewCachedGeocoder(geocode.NewClient(cfg, log), cache, cfg.GetGeocodeCacheTTL(), log)
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
