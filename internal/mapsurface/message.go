package mapsurface

import (
	"gigwork_maps/internal/routing"
	"gigwork_maps/platform/geo"
)

// MessageTypeUpdateMarkers is the only message the host understands.
const MessageTypeUpdateMarkers = "updateMarkers"

// FitPadding is the pixel padding applied when fitting bounds.
const FitPadding = 48

// RenderedMarker is a marker with its resolved style.
type RenderedMarker struct {
	Marker
	Style MarkerStyle `json:"style"`
}

// RenderedRoute is a resolved route ready to draw.
type RenderedRoute struct {
	Polyline        []geo.Coordinate  `json:"polyline"`
	Style           routing.LineStyle `json:"style"`
	DistanceMeters  float64           `json:"distanceMeters"`
	DurationSeconds float64           `json:"durationSeconds"`
	DistanceText    string            `json:"distanceText"`
	DurationText    string            `json:"durationText"`
	Fallback        bool              `json:"fallback"`
}

// FitBounds asks the host to fit the camera to a box.
type FitBounds struct {
	SouthWest geo.Coordinate `json:"southWest"`
	NorthEast geo.Coordinate `json:"northEast"`
	Padding   int            `json:"padding"`
}

// Message is pushed to the host. The host clears only its marker and route
// layers before drawing; tiles and camera are left alone unless Fit is set.
type Message struct {
	Type         string                `json:"type"`
	Revision     int64                 `json:"revision"`
	Markers      []RenderedMarker      `json:"markers"`
	RouteRequest *routing.RouteRequest `json:"routeRequest,omitempty"`
	Route        *RenderedRoute        `json:"route,omitempty"`
	Fit          *FitBounds            `json:"fit,omitempty"`
}
