package repository

import (
	"context"
	"time"

	"gigwork_maps/platform/geo"

	"github.com/google/uuid"
)

// Location is the latest known position of a user.
type Location struct {
	UserID     uuid.UUID
	Coordinate geo.Coordinate
	AccuracyM  *float64
	UpdatedAt  time.Time
}

// LocationReader provides read operations for stored positions.
type LocationReader interface {
	Get(ctx context.Context, userID uuid.UUID) (Location, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]Location, error)
}

// LocationWriter provides write operations for stored positions.
type LocationWriter interface {
	Upsert(ctx context.Context, loc Location) error
}

// Repository combines all location repository operations.
type Repository interface {
	LocationReader
	LocationWriter
}
