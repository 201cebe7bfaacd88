package mapsurface

import (
	"context"
	"sync"
	"time"

	"gigwork_maps/internal/routing"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// RouteEngine resolves a drawable route; it never fails.
type RouteEngine interface {
	Route(ctx context.Context, from, to geo.Coordinate) routing.RouteResult
}

// Update is one marker and route change.
type Update struct {
	Markers []Marker              `json:"markers"`
	Route   *routing.RouteRequest `json:"route,omitempty"`
	AutoFit bool                  `json:"autoFit"`
}

// Surface is a long-lived rendering context. Its init parameters are fixed
// at creation; later changes arrive through ApplyUpdate.
type Surface struct {
	id        string
	owner     uuid.UUID
	engine    RouteEngine
	styles    *StyleSheet
	hub       *Hub
	lang      language.Tag
	log       *logger.Logger
	init      InitParams
	createdAt time.Time

	mu       sync.Mutex
	revision int64
	last     *Message
}

// NewSurface creates a surface whose camera is derived from initial.
func NewSurface(id string, owner uuid.UUID, initial []Marker, engine RouteEngine, styles *StyleSheet, hub *Hub, lang language.Tag, log *logger.Logger) *Surface {
	if styles == nil {
		styles = DefaultStyles()
	}
	if log != nil {
		log = log.WithSession(id)
	}
	return &Surface{
		id:        id,
		owner:     owner,
		engine:    engine,
		styles:    styles,
		hub:       hub,
		lang:      lang,
		log:       log,
		init:      ComputeInit(initial, styles),
		createdAt: time.Now(),
	}
}

// ID returns the surface id.
func (s *Surface) ID() string { return s.id }

// Owner returns the user that created the surface.
func (s *Surface) Owner() uuid.UUID { return s.owner }

// Init returns the fixed initialization parameters.
func (s *Surface) Init() InitParams { return s.init }

// Styles returns the surface style sheet.
func (s *Surface) Styles() *StyleSheet { return s.styles }

// Last returns the most recent message, if any.
func (s *Surface) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Message{}, false
	}
	return *s.last, true
}

// ApplyUpdate filters sentinel markers, resolves the requested route and
// pushes the resulting message to every subscriber.
func (s *Surface) ApplyUpdate(ctx context.Context, u Update) Message {
	valid := ValidMarkers(u.Markers)
	msg := Message{
		Type:    MessageTypeUpdateMarkers,
		Markers: render(valid, s.styles),
	}

	var routePoints []geo.Coordinate
	if u.Route != nil && u.Route.From.IsValid() && u.Route.To.IsValid() {
		req := *u.Route
		result := s.engine.Route(ctx, req.From, req.To)
		msg.RouteRequest = &req
		msg.Route = &RenderedRoute{
			Polyline:        result.Polyline,
			Style:           result.Style(),
			DistanceMeters:  result.DistanceMeters,
			DurationSeconds: result.DurationSeconds,
			DistanceText:    routing.FormatDistance(result.DistanceMeters, s.lang),
			DurationText:    routing.FormatDuration(result.DurationSeconds, s.lang),
			Fallback:        result.Fallback,
		}
		routePoints = result.Polyline
	}

	msg.Fit = fitBounds(valid, routePoints, u.AutoFit)

	// Publishing under mu keeps hub order equal to revision order.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	msg.Revision = s.revision
	s.last = &msg
	if s.hub != nil {
		s.hub.Publish(s.id, msg)
	}
	return msg
}

// fitBounds covers every valid marker and every route point. A drawn route
// is always brought into view. Without one, the camera only moves when
// autoFit is set and at least two markers are visible.
func fitBounds(markers []Marker, route []geo.Coordinate, autoFit bool) *FitBounds {
	if len(route) == 0 && (!autoFit || len(markers) < 2) {
		return nil
	}
	points := append(coordinates(markers), route...)
	bound, ok := geo.Bounds(points)
	if !ok {
		return nil
	}
	box := geo.NewBoundBox(bound)
	return &FitBounds{
		SouthWest: box.SouthWest,
		NorthEast: box.NorthEast,
		Padding:   FitPadding,
	}
}
