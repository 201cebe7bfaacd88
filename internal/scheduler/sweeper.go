package scheduler

import (
	"context"
	"time"

	"gigwork_maps/internal/jobs"
	"gigwork_maps/platform/logger"

	"github.com/jonboulle/clockwork"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultSweepBatch    = 50
)

// MissingSiteLister lists jobs whose site has no coordinates yet.
type MissingSiteLister interface {
	ListMissingCoordinates(ctx context.Context, limit int) ([]jobs.Job, error)
}

// JobGeocodeSweeper periodically enqueues geocode tasks for jobs without
// coordinates. Task ids dedupe jobs that are already queued.
type JobGeocodeSweeper struct {
	lister   MissingSiteLister
	enqueuer jobs.GeocodeEnqueuer
	clock    clockwork.Clock
	interval time.Duration
	batch    int
	log      *logger.Logger
}

func NewJobGeocodeSweeper(lister MissingSiteLister, enqueuer jobs.GeocodeEnqueuer, clock clockwork.Clock, interval time.Duration, log *logger.Logger) *JobGeocodeSweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &JobGeocodeSweeper{
		lister:   lister,
		enqueuer: enqueuer,
		clock:    clock,
		interval: interval,
		batch:    defaultSweepBatch,
		log:      log,
	}
}

// SetBatchSize bounds how many jobs one sweep enqueues.
func (s *JobGeocodeSweeper) SetBatchSize(n int) {
	if n > 0 {
		s.batch = n
	}
}

func (s *JobGeocodeSweeper) Run(ctx context.Context) {
	if s == nil || s.lister == nil || s.enqueuer == nil {
		return
	}

	s.sweep(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
		s.sweep(ctx)
	}
}

func (s *JobGeocodeSweeper) sweep(ctx context.Context) int {
	pending, err := s.lister.ListMissingCoordinates(ctx, s.batch)
	if err != nil {
		s.log.Warn("job geocode sweep failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, job := range pending {
		if err := s.enqueuer.EnqueueJobGeocode(ctx, job.ID, job.Address); err != nil {
			s.log.Warn("failed to enqueue job geocode", "jobId", job.ID, "error", err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		s.log.Info("job geocode tasks enqueued", "count", enqueued)
	}
	return enqueued
}
