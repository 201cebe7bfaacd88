package maps

import (
	"context"
	"strings"

	"gigwork_maps/internal/events"
	"gigwork_maps/internal/geocode"
	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/internal/routing"
	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

const defaultSuggestionLimit = 5

var errSurfaceNotFound = apperr.NotFound("map surface not found")

// Service exposes geocoding, routing and map surfaces to HTTP clients.
type Service struct {
	geocoder     geocode.Geocoder
	engine       *routing.Engine
	registry     *mapsurface.Registry
	bus          events.Bus
	defaultLimit int
	log          *logger.Logger
}

// NewService creates the maps service. bus may be nil.
func NewService(geocoder geocode.Geocoder, engine *routing.Engine, registry *mapsurface.Registry, bus events.Bus, defaultLimit int, log *logger.Logger) *Service {
	if defaultLimit <= 0 {
		defaultLimit = defaultSuggestionLimit
	}
	return &Service{
		geocoder:     geocoder,
		engine:       engine,
		registry:     registry,
		bus:          bus,
		defaultLimit: defaultLimit,
		log:          log,
	}
}

// SearchAddress returns autocomplete suggestions for query.
func (s *Service) SearchAddress(ctx context.Context, query string, limit int) (SuggestionsResponse, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	items, err := s.geocoder.Autocomplete(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return SuggestionsResponse{}, err
	}
	if items == nil {
		items = []geocode.AddressSuggestion{}
	}
	return SuggestionsResponse{Items: items}, nil
}

// Geocode resolves a free-text address.
func (s *Service) Geocode(ctx context.Context, address string) (CoordinateResponse, error) {
	coord, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return CoordinateResponse{}, err
	}
	return CoordinateResponse{Coordinate: coord}, nil
}

// PlaceDetails resolves a place id from a suggestion.
func (s *Service) PlaceDetails(ctx context.Context, placeID string) (CoordinateResponse, error) {
	coord, err := s.geocoder.PlaceDetails(ctx, placeID)
	if err != nil {
		return CoordinateResponse{}, err
	}
	return CoordinateResponse{Coordinate: coord}, nil
}

// Route always returns something drawable.
func (s *Service) Route(ctx context.Context, from, to geo.Coordinate, lang language.Tag) RouteResponse {
	result := s.engine.Route(ctx, from, to)
	return RouteResponse{
		RouteResult:  result,
		Style:        result.Style(),
		DistanceText: routing.FormatDistance(result.DistanceMeters, lang),
		DurationText: routing.FormatDuration(result.DurationSeconds, lang),
		Feature:      result.GeoJSON(),
	}
}

// CreateSurface registers a surface owned by owner.
func (s *Service) CreateSurface(owner uuid.UUID, req CreateSurfaceRequest, lang language.Tag) SurfaceResponse {
	surface := s.registry.Create(owner, req.Markers, lang)
	return toSurfaceResponse(surface)
}

// Surface looks up a surface by id.
func (s *Service) Surface(id string) (*mapsurface.Surface, error) {
	surface, ok := s.registry.Get(id)
	if !ok {
		return nil, errSurfaceNotFound
	}
	return surface, nil
}

// UpdateMarkers pushes a marker update to a surface. Only the owner may
// update it.
func (s *Service) UpdateMarkers(ctx context.Context, owner uuid.UUID, id string, req UpdateMarkersRequest) (mapsurface.Message, error) {
	surface, err := s.Surface(id)
	if err != nil {
		return mapsurface.Message{}, err
	}
	if surface.Owner() != owner {
		return mapsurface.Message{}, apperr.Forbidden("map surface belongs to another user")
	}

	msg := surface.ApplyUpdate(ctx, mapsurface.Update{
		Markers: req.Markers,
		Route:   req.Route,
		AutoFit: req.AutoFit,
	})

	if s.bus != nil {
		s.bus.Publish(ctx, events.SurfaceUpdated{
			BaseEvent:   events.NewBaseEvent(),
			SurfaceID:   id,
			Revision:    msg.Revision,
			MarkerCount: len(msg.Markers),
			Fallback:    msg.Route != nil && msg.Route.Fallback,
		})
	}
	return msg, nil
}

// DeleteSurface removes a surface owned by owner and disconnects its hosts.
func (s *Service) DeleteSurface(owner uuid.UUID, id string) error {
	surface, err := s.Surface(id)
	if err != nil {
		return err
	}
	if surface.Owner() != owner {
		return apperr.Forbidden("map surface belongs to another user")
	}
	s.registry.Remove(id)
	return nil
}

func toSurfaceResponse(surface *mapsurface.Surface) SurfaceResponse {
	return SurfaceResponse{
		ID:       surface.ID(),
		Init:     surface.Init(),
		HostPath: "/api/v1/maps/surfaces/" + surface.ID(),
	}
}
