package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"gigwork_maps/internal/events"
	"gigwork_maps/internal/geocode"
	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrUnresolvable marks an address the geocoder could not place. Retrying
// it will not help.
var ErrUnresolvable = errors.New("job address cannot be geocoded")

// GeocodeEnqueuer schedules asynchronous geocoding of a job site.
type GeocodeEnqueuer interface {
	EnqueueJobGeocode(ctx context.Context, jobID uuid.UUID, address string) error
}

// Service resolves job-site coordinates.
type Service struct {
	repo     Repository
	geocoder geocode.Geocoder
	enqueuer GeocodeEnqueuer
	bus      events.Bus
	clock    clockwork.Clock
	log      *logger.Logger
}

// NewService creates a job-site service. enqueuer and bus may be nil.
func NewService(repo Repository, geocoder geocode.Geocoder, bus events.Bus, clock clockwork.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{repo: repo, geocoder: geocoder, bus: bus, clock: clock, log: log}
}

// SetEnqueuer makes RequestGeocode asynchronous.
func (s *Service) SetEnqueuer(enqueuer GeocodeEnqueuer) {
	s.enqueuer = enqueuer
}

// GeocodeSite resolves address and stores it as the site of jobID.
// ErrUnresolvable is returned when the geocoder has no result.
func (s *Service) GeocodeSite(ctx context.Context, jobID uuid.UUID, address string) (geo.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return geo.Coordinate{}, ErrUnresolvable
	}

	coord, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		if errors.Is(err, geocode.ErrNoResult) {
			return geo.Coordinate{}, ErrUnresolvable
		}
		return geo.Coordinate{}, err
	}

	if err := s.repo.UpdateCoordinates(ctx, jobID, coord); err != nil {
		return geo.Coordinate{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.JobSiteGeocoded{
			BaseEvent: events.NewBaseEvent(),
			JobID:     jobID,
			Address:   address,
			Latitude:  coord.Latitude,
			Longitude: coord.Longitude,
		})
	}
	s.log.Info("job site geocoded", "jobId", jobID, "lat", coord.Latitude, "lon", coord.Longitude)
	return coord, nil
}

// RequestGeocode geocodes the site of jobID, through the task queue when one
// is configured.
func (s *Service) RequestGeocode(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if s.enqueuer != nil {
		return s.enqueuer.EnqueueJobGeocode(ctx, job.ID, job.Address)
	}
	_, err = s.GeocodeSite(ctx, job.ID, job.Address)
	if errors.Is(err, ErrUnresolvable) {
		return apperr.Wrap(apperr.KindValidation, "job address cannot be located", err)
	}
	return err
}

// SiteMarker returns the job site as a map marker. A job without
// coordinates yields a sentinel marker, which surfaces skip.
func (s *Service) SiteMarker(ctx context.Context, jobID uuid.UUID) (mapsurface.Marker, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return mapsurface.Marker{}, err
	}
	return SiteMarker(job), nil
}

// SiteMarker converts a job into its map marker.
func SiteMarker(job Job) mapsurface.Marker {
	m := mapsurface.Marker{
		ID:         "job:" + job.ID.String(),
		Label:      job.Title,
		ColorClass: mapsurface.ClassJobSite,
	}
	if job.Coordinate != nil {
		m.Coordinate = *job.Coordinate
	}
	return m
}

// BackfillResult summarizes a backfill run.
type BackfillResult struct {
	Geocoded int
	Skipped  int
	Failed   int
}

// Backfill geocodes jobs missing coordinates in batches, pausing between
// upstream calls. It stops when a batch makes no progress or ctx ends.
func (s *Service) Backfill(ctx context.Context, batchSize int, pause time.Duration) (BackfillResult, error) {
	var result BackfillResult
	if batchSize <= 0 {
		batchSize = 25
	}

	for {
		batch, err := s.repo.ListMissingCoordinates(ctx, batchSize)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			s.log.Info("no jobs left to geocode")
			return result, nil
		}

		progress := false
		for _, job := range batch {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}

			_, err := s.GeocodeSite(ctx, job.ID, job.Address)
			switch {
			case err == nil:
				result.Geocoded++
				progress = true
			case errors.Is(err, ErrUnresolvable):
				result.Skipped++
				s.log.Info("no geocode result", "jobId", job.ID, "address", job.Address)
			default:
				result.Failed++
				s.log.Error("geocode failed", "jobId", job.ID, "error", err)
			}

			if pause > 0 {
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-s.clock.After(pause):
				}
			}
		}

		if !progress {
			s.log.Info("no geocode progress in batch, stopping")
			return result, nil
		}
	}
}
