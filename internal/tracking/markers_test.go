package tracking

import (
	"testing"

	"gigwork_maps/internal/mapsurface"
	"gigwork_maps/platform/geo"

	"github.com/google/uuid"
)

func TestPeerMarkersSkipsUnknownPositions(t *testing.T) {
	known := uuid.New()
	missing := uuid.New()
	unlabeled := uuid.New()
	coord := geo.Coordinate{Latitude: 10.78, Longitude: 106.69}

	peers := []TrackedPeer{
		{UserID: known, Coordinate: &coord},
		{UserID: missing},
		{UserID: unlabeled, Coordinate: &coord},
	}
	markers := PeerMarkers(peers, mapsurface.ClassWorker, map[uuid.UUID]string{known: "Lan"})

	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[0].Label != "Lan" || markers[0].ColorClass != mapsurface.ClassWorker {
		t.Fatalf("unexpected first marker %+v", markers[0])
	}
	if markers[1].Label != unlabeled.String() {
		t.Fatalf("expected id label fallback, got %q", markers[1].Label)
	}
}
