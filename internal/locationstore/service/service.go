package service

import (
	"context"

	"gigwork_maps/internal/events"
	"gigwork_maps/internal/locationstore/repository"
	"gigwork_maps/internal/locationstore/transport"
	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const defaultHistoryLimit = 50

// LatestCache is the read-through cache in front of the repository.
type LatestCache interface {
	Set(ctx context.Context, loc repository.Location) error
	Get(ctx context.Context, userID uuid.UUID) (repository.Location, bool, error)
}

// Service stores published positions and serves them to peers.
type Service struct {
	repo  repository.Repository
	cache LatestCache
	bus   events.Bus
	clock clockwork.Clock
	log   *logger.Logger
}

// New creates a location service. cache and bus may be nil.
func New(repo repository.Repository, cache LatestCache, bus events.Bus, clock clockwork.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{repo: repo, cache: cache, bus: bus, clock: clock, log: log}
}

// UpdateOwn records the caller's current position. The (0,0) sentinel is
// rejected; it means "unknown" and is never stored.
func (s *Service) UpdateOwn(ctx context.Context, userID uuid.UUID, req transport.UpdateLocationRequest) (transport.LocationResponse, error) {
	coord := geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if !coord.IsValid() {
		return transport.LocationResponse{}, apperr.Validation("latitude and longitude must be a known position")
	}

	loc := repository.Location{
		UserID:     userID,
		Coordinate: coord,
		AccuracyM:  req.AccuracyM,
		UpdatedAt:  s.clock.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, loc); err != nil {
		s.log.DatabaseError("upsert location", err)
		return transport.LocationResponse{}, apperr.Wrap(apperr.KindInternal, "failed to store location", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, loc); err != nil {
			s.log.Warn("location cache write failed", "userId", userID, "error", err)
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LocationUpdated{
			BaseEvent: events.NewBaseEvent(),
			UserID:    userID,
			Latitude:  coord.Latitude,
			Longitude: coord.Longitude,
			At:        loc.UpdatedAt,
		})
	}

	return toResponse(loc), nil
}

// Get returns the latest position of userID. A user that never shared a
// location yields a response with null fields, not an error.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (transport.LocationResponse, error) {
	if s.cache != nil {
		loc, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.log.Warn("location cache read failed", "userId", userID, "error", err)
		} else if ok {
			return toResponse(loc), nil
		}
	}

	loc, err := s.repo.Get(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return transport.LocationResponse{}, nil
		}
		s.log.DatabaseError("get location", err)
		return transport.LocationResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load location", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, loc); err != nil {
			s.log.Warn("location cache write failed", "userId", userID, "error", err)
		}
	}
	return toResponse(loc), nil
}

// History returns recent positions of userID, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, req transport.HistoryRequest) (transport.HistoryResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	items, err := s.repo.History(ctx, userID, limit)
	if err != nil {
		s.log.DatabaseError("list location history", err)
		return transport.HistoryResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load location history", err)
	}

	resp := transport.HistoryResponse{Items: make([]transport.LocationResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, toResponse(item))
	}
	return resp, nil
}

func toResponse(loc repository.Location) transport.LocationResponse {
	lat := loc.Coordinate.Latitude
	lng := loc.Coordinate.Longitude
	resp := transport.LocationResponse{
		Latitude:  &lat,
		Longitude: &lng,
		AccuracyM: loc.AccuracyM,
	}
	if !loc.UpdatedAt.IsZero() {
		ms := loc.UpdatedAt.UnixMilli()
		resp.LocationUpdatedAt = &ms
	}
	return resp
}
