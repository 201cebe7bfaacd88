package scheduler

import (
	"context"
	"errors"
	"fmt"

	"gigwork_maps/internal/jobs"
	"gigwork_maps/platform/config"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SiteGeocoder resolves and stores a job-site position.
type SiteGeocoder interface {
	GeocodeSite(ctx context.Context, jobID uuid.UUID, address string) (geo.Coordinate, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sites  SiteGeocoder
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sites SiteGeocoder, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		sites:  sites,
		log:    log,
	}

	mux.HandleFunc(TaskJobGeocode, w.handleJobGeocode)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleJobGeocode resolves one job site. Bad payloads and addresses the
// geocoder cannot place are not retried; upstream failures are.
func (w *Worker) handleJobGeocode(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseJobGeocodePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("%w: invalid job id %q", asynq.SkipRetry, payload.JobID)
	}

	_, err = w.sites.GeocodeSite(ctx, jobID, payload.Address)
	if errors.Is(err, jobs.ErrUnresolvable) {
		w.log.Info("job address cannot be geocoded", "jobId", jobID, "address", payload.Address)
		return nil
	}
	if err != nil {
		w.log.Warn("job geocode failed, will retry", "jobId", jobID, "error", err)
		return err
	}
	return nil
}
