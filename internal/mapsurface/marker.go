// Package mapsurface keeps a long-lived map rendering surface in sync with
// marker and route updates without reinitializing the map.
package mapsurface

import "gigwork_maps/platform/geo"

// ColorClass selects a marker's visual style.
type ColorClass string

const (
	ClassSelf         ColorClass = "self"
	ClassCounterparty ColorClass = "counterparty"
	ClassJobSite      ColorClass = "job-site"
	ClassWorker       ColorClass = "worker"
	ClassEmployer     ColorClass = "employer"
)

// Marker is derived from tracked peers or job data on every update and
// never mutated in place.
type Marker struct {
	ID         string         `json:"id"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Label      string         `json:"label"`
	ColorClass ColorClass     `json:"colorClass"`
	Icon       string         `json:"icon,omitempty"`
}

// ValidMarkers drops markers at the (0,0) sentinel or out of range.
func ValidMarkers(markers []Marker) []Marker {
	out := make([]Marker, 0, len(markers))
	for _, m := range markers {
		if m.Coordinate.IsValid() {
			out = append(out, m)
		}
	}
	return out
}

func coordinates(markers []Marker) []geo.Coordinate {
	out := make([]geo.Coordinate, 0, len(markers))
	for _, m := range markers {
		out = append(out, m.Coordinate)
	}
	return out
}
