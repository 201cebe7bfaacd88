// Package tracking publishes the device position and polls peer positions
// on a fixed cadence while a tracking relationship is active.
package tracking

import (
	"context"
	"time"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"

	"github.com/google/uuid"
)

// ErrPermissionDenied is the terminal state of a session whose foreground
// location permission was refused.
var ErrPermissionDenied = apperr.PermissionDenied("location permission denied")

// PermissionRequester asks the user for foreground location access.
type PermissionRequester interface {
	RequestForeground(ctx context.Context) (bool, error)
}

// Position is a single device reading.
type Position struct {
	Coordinate geo.Coordinate
	AccuracyM  float64
	At         time.Time
}

// PositionSource yields one fresh reading per call.
type PositionSource interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// PeerLocation is the last position a peer published. Coordinate is the
// sentinel when the peer never shared a location.
type PeerLocation struct {
	Coordinate geo.Coordinate
	UpdatedAt  time.Time
}

// LocationStore is the remote store positions are published to and read from.
type LocationStore interface {
	PublishOwn(ctx context.Context, coord geo.Coordinate) error
	PeerLocation(ctx context.Context, userID uuid.UUID) (PeerLocation, error)
}

// TrackedPeer is one observed counterparty.
type TrackedPeer struct {
	UserID     uuid.UUID       `json:"userId"`
	Coordinate *geo.Coordinate `json:"coordinate"`
	UpdatedAt  *time.Time      `json:"updatedAt"`
}

func newTrackedPeer(userID uuid.UUID, loc PeerLocation) TrackedPeer {
	peer := TrackedPeer{UserID: userID}
	if loc.Coordinate.IsValid() {
		c := loc.Coordinate
		peer.Coordinate = &c
	}
	if !loc.UpdatedAt.IsZero() {
		t := loc.UpdatedAt
		peer.UpdatedAt = &t
	}
	return peer
}
