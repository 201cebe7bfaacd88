// Package routing resolves point-to-point routes for map display. Every
// request yields a drawable result: when the routing service fails, a
// straight line between the endpoints is returned instead.
package routing

import (
	"context"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNoRoute is returned by a Router when the service found no route.
var ErrNoRoute = apperr.NotFound("no route between points")

// RouteRequest asks for a route between two coordinates.
type RouteRequest struct {
	From geo.Coordinate `json:"from"`
	To   geo.Coordinate `json:"to"`
}

// RouteResult is a drawable route.
type RouteResult struct {
	Polyline        []geo.Coordinate `json:"polyline"`
	DistanceMeters  float64          `json:"distanceMeters"`
	DurationSeconds float64          `json:"durationSeconds"`
	Fallback        bool             `json:"fallback"`
}

// Router fetches a routed path from an external service.
type Router interface {
	Route(ctx context.Context, from, to geo.Coordinate) (RouteResult, error)
}

// LineStyle is the polyline rendering style understood by the map host.
type LineStyle struct {
	Color     string  `json:"color"`
	Weight    int     `json:"weight"`
	Opacity   float64 `json:"opacity"`
	DashArray string  `json:"dashArray,omitempty"`
}

var (
	resolvedStyle = LineStyle{Color: "#2563eb", Weight: 5, Opacity: 0.85}
	fallbackStyle = LineStyle{Color: "#64748b", Weight: 3, Opacity: 0.5, DashArray: "8 8"}
)

// Style returns the solid style for a routed path and a dashed, fainter one
// for the straight-line fallback.
func (r RouteResult) Style() LineStyle {
	if r.Fallback {
		return fallbackStyle
	}
	return resolvedStyle
}

// LineString converts the polyline to an orb line string ([lng, lat] order).
func (r RouteResult) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(r.Polyline))
	for _, c := range r.Polyline {
		ls = append(ls, c.Point())
	}
	return ls
}

// GeoJSON returns the route as a GeoJSON feature carrying its metrics and style.
func (r RouteResult) GeoJSON() *geojson.Feature {
	f := geojson.NewFeature(r.LineString())
	f.Properties["distanceMeters"] = r.DistanceMeters
	f.Properties["durationSeconds"] = r.DurationSeconds
	f.Properties["fallback"] = r.Fallback
	f.Properties["style"] = r.Style()
	return f
}

// Fallback synthesizes the straight two-point route.
func Fallback(from, to geo.Coordinate) RouteResult {
	result := RouteResult{
		Polyline: []geo.Coordinate{from, to},
		Fallback: true,
	}
	if from.IsValid() && to.IsValid() {
		result.DistanceMeters = geo.DistanceMeters(from, to)
	}
	return result
}
