// Package geo provides the coordinate model shared by geocoding, tracking,
// routing and map rendering.
// This is part of the platform layer and contains no business logic.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Coordinate is a WGS84 position. (0,0) is the sentinel for "no location
// available" and is never treated as a real position.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Sentinel is the "unknown location" coordinate.
var Sentinel = Coordinate{}

// IsValid reports whether c is a usable position: both components non-zero,
// finite and within range.
func (c Coordinate) IsValid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	if c.Latitude == 0 || c.Longitude == 0 {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Point converts to an orb point, which is ordered [lng, lat].
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// FromPoint converts an orb point back into a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Latitude: p.Lat(), Longitude: p.Lon()}
}

// ApproxEqual compares two coordinates component-wise within tol degrees.
func ApproxEqual(a, b Coordinate, tol float64) bool {
	return math.Abs(a.Latitude-b.Latitude) <= tol && math.Abs(a.Longitude-b.Longitude) <= tol
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// FilterValid returns the valid coordinates of cs, preserving order.
func FilterValid(cs []Coordinate) []Coordinate {
	out := make([]Coordinate, 0, len(cs))
	for _, c := range cs {
		if c.IsValid() {
			out = append(out, c)
		}
	}
	return out
}

// Centroid returns the arithmetic mean of the valid coordinates in cs.
// The second result is false when cs holds no valid coordinate.
func Centroid(cs []Coordinate) (Coordinate, bool) {
	var lat, lng float64
	n := 0
	for _, c := range cs {
		if !c.IsValid() {
			continue
		}
		lat += c.Latitude
		lng += c.Longitude
		n++
	}
	if n == 0 {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: lat / float64(n), Longitude: lng / float64(n)}, true
}

// Bounds returns the bounding box covering every valid coordinate in cs.
// Invalid coordinates never widen the box.
func Bounds(cs []Coordinate) (orb.Bound, bool) {
	var bound orb.Bound
	found := false
	for _, c := range cs {
		if !c.IsValid() {
			continue
		}
		if !found {
			bound = c.Point().Bound()
			found = true
			continue
		}
		bound = bound.Extend(c.Point())
	}
	return bound, found
}

// BoundBox is the JSON shape of a bounding box sent to rendering hosts.
type BoundBox struct {
	SouthWest Coordinate `json:"southWest"`
	NorthEast Coordinate `json:"northEast"`
}

// NewBoundBox converts an orb bound into its JSON shape.
func NewBoundBox(b orb.Bound) BoundBox {
	return BoundBox{
		SouthWest: FromPoint(b.Min),
		NorthEast: FromPoint(b.Max),
	}
}

// Contains reports whether c lies inside the box (edges included).
func (b BoundBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.SouthWest.Latitude && c.Latitude <= b.NorthEast.Latitude &&
		c.Longitude >= b.SouthWest.Longitude && c.Longitude <= b.NorthEast.Longitude
}
