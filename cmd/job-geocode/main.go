package main

import (
	"context"
	"time"

	"gigwork_maps/internal/events"
	"gigwork_maps/internal/geocode"
	"gigwork_maps/internal/jobs"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/db"
	"gigwork_maps/platform/logger"

	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting job geocode backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	geocoder := geocode.NewCachedGeocoder(geocode.NewClient(cfg, log), geocode.NewMemoryCache(nil), cfg.GetGeocodeCacheTTL(), log)
	svc := jobs.NewService(jobs.NewRepository(pool), geocoder, events.NewInMemoryBus(log), clockwork.NewRealClock(), log)

	const batchSize = 25
	result, err := svc.Backfill(ctx, batchSize, time.Second)
	if err != nil {
		log.Error("job geocode backfill failed", "error", err, "geocoded", result.Geocoded)
		return
	}
	log.Info("job geocode backfill complete", "geocoded", result.Geocoded, "skipped", result.Skipped, "failed", result.Failed)
}
