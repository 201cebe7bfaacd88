package mapsurface

import (
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/sanitize"
)

// DefaultCenter is used when the first marker set has no valid marker.
var DefaultCenter = geo.Coordinate{Latitude: 10.7769, Longitude: 106.7009}

const (
	DefaultZoom      = 12
	SingleMarkerZoom = 15
	MultiMarkerZoom  = 13
)

// InitParams configure the host once. Updates never change them.
type InitParams struct {
	Center  geo.Coordinate   `json:"center"`
	Zoom    int              `json:"zoom"`
	Markers []RenderedMarker `json:"markers"`
}

// ComputeInit derives the initial camera from the first marker set: the
// default center without valid markers, the marker itself for one, and the
// centroid for several.
func ComputeInit(markers []Marker, styles *StyleSheet) InitParams {
	valid := ValidMarkers(markers)
	params := InitParams{Markers: render(valid, styles)}

	switch len(valid) {
	case 0:
		params.Center = DefaultCenter
		params.Zoom = DefaultZoom
	case 1:
		params.Center = valid[0].Coordinate
		params.Zoom = SingleMarkerZoom
	default:
		center, _ := geo.Centroid(coordinates(valid))
		params.Center = center
		params.Zoom = MultiMarkerZoom
	}
	return params
}

func render(markers []Marker, styles *StyleSheet) []RenderedMarker {
	out := make([]RenderedMarker, 0, len(markers))
	for _, m := range markers {
		style := styles.For(m.ColorClass)
		if m.Icon == "" {
			m.Icon = style.Icon
		}
		m.Label = sanitize.Label(m.Label)
		out = append(out, RenderedMarker{Marker: m, Style: style})
	}
	return out
}
