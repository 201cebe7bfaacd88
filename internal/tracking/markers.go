package tracking

import (
	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/platform/geo"

	"github.com/google/uuid"
)

// PeerMarkers turns tracked peers into surface markers. Peers without a
// known position are left out; labels default to the user id.
func PeerMarkers(peers []TrackedPeer, class mapsurface.ColorClass, labels map[uuid.UUID]string) []mapsurface.Marker {
	markers := make([]mapsurface.Marker, 0, len(peers))
	for _, p := range peers {
		if p.Coordinate == nil {
			continue
		}
		label := labels[p.UserID]
		if label == "" {
			label = p.UserID.String()
		}
		markers = append(markers, mapsurface.Marker{
			ID:         p.UserID.String(),
			Coordinate: *p.Coordinate,
			Label:      label,
			ColorClass: class,
		})
	}
	return markers
}

// SelfMarker is the marker for the device's own position.
func SelfMarker(coord geo.Coordinate, label string) mapsurface.Marker {
	return mapsurface.Marker{ID: "self", Coordinate: coord, Label: label, ColorClass: mapsurface.ClassSelf}
}
