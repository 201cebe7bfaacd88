package tracking

import (
	"context"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"
)

// Locator resolves the caller's own position once, for read-only map
// display before live tracking is active.
type Locator struct {
	permission PermissionRequester
	source     PositionSource
}

// NewLocator creates a one-shot locator.
func NewLocator(permission PermissionRequester, source PositionSource) *Locator {
	return &Locator{permission: permission, source: source}
}

// Locate requests permission and reads a single position.
func (l *Locator) Locate(ctx context.Context) (geo.Coordinate, error) {
	granted, err := l.permission.RequestForeground(ctx)
	if err != nil || !granted {
		return geo.Coordinate{}, ErrPermissionDenied
	}

	pos, err := l.source.CurrentPosition(ctx)
	if err != nil {
		return geo.Coordinate{}, apperr.Unavailable("position unavailable", err)
	}
	if !pos.Coordinate.IsValid() {
		return geo.Coordinate{}, apperr.Unavailable("position unavailable", nil)
	}
	return pos.Coordinate, nil
}
