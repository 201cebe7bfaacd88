// Package geocode resolves free-text addresses to suggestions and coordinates.
package geocode

import (
	"context"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"
)

// ErrNoResult is returned when the upstream service found nothing for the query.
var ErrNoResult = apperr.NotFound("no geocoding result")

// AddressSuggestion is one autocomplete candidate.
type AddressSuggestion struct {
	ID           string          `json:"id"`
	ShortAddress string          `json:"shortAddress"`
	FullAddress  string          `json:"fullAddress"`
	PlaceID      string          `json:"placeId,omitempty"`
	Coordinate   *geo.Coordinate `json:"coordinate,omitempty"`
}

// Geocoder is the contract shared by the HTTP client and its cached decorator.
type Geocoder interface {
	Autocomplete(ctx context.Context, text string, limit int) ([]AddressSuggestion, error)
	PlaceDetails(ctx context.Context, placeID string) (geo.Coordinate, error)
	Geocode(ctx context.Context, address string) (geo.Coordinate, error)
}
