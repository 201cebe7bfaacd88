package maps

import (
	"gigwork_maps/internal/geocode"
	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/internal/routing"
	"gigwork_maps/platform/geo"

	"github.com/paulmach/orb/geojson"
)

// LookupRequest represents the autocomplete query parameters.
type LookupRequest struct {
	Query string `form:"q" binding:"required,min=3"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=20"`
}

// GeocodeRequest represents the free-text geocode query parameters.
type GeocodeRequest struct {
	Address string `form:"address" binding:"required" validate:"max=500"`
}

// RouteQuery holds the endpoints of a route request. Missing or zero values
// are allowed and yield the fallback route.
type RouteQuery struct {
	FromLat float64 `form:"fromLat"`
	FromLng float64 `form:"fromLng"`
	ToLat   float64 `form:"toLat"`
	ToLng   float64 `form:"toLng"`
	Lang    string  `form:"lang"`
}

// SuggestionsResponse wraps autocomplete results.
type SuggestionsResponse struct {
	Items []geocode.AddressSuggestion `json:"items"`
}

// CoordinateResponse is a single resolved position.
type CoordinateResponse struct {
	Coordinate geo.Coordinate `json:"coordinate"`
}

// RouteResponse is a drawable route plus its display texts.
type RouteResponse struct {
	routing.RouteResult
	Style        routing.LineStyle `json:"style"`
	DistanceText string            `json:"distanceText"`
	DurationText string            `json:"durationText"`
	Feature      *geojson.Feature  `json:"feature"`
}

// CreateSurfaceRequest creates a map surface with its initial markers.
type CreateSurfaceRequest struct {
	Markers []mapsurface.Marker `json:"markers" validate:"max=200"`
	Lang    string              `json:"lang"`
}

// UpdateMarkersRequest replaces the markers of a surface and optionally
// draws a route.
type UpdateMarkersRequest struct {
	Markers []mapsurface.Marker   `json:"markers" validate:"max=200"`
	Route   *routing.RouteRequest `json:"route,omitempty"`
	AutoFit bool                  `json:"autoFit"`
}

// SurfaceResponse describes a surface and where its host page lives.
type SurfaceResponse struct {
	ID       string                `json:"id"`
	Init     mapsurface.InitParams `json:"init"`
	HostPath string                `json:"hostPath"`
}
