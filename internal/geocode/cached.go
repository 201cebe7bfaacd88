package geocode

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"
)

// CachedGeocoder decorates a Geocoder with a TTL cache. Cache failures are
// logged and fall through to the wrapped geocoder.
type CachedGeocoder struct {
	inner Geocoder
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

var _ Geocoder = (*CachedGeocoder)(nil)

// NewCachedGeocoder wraps inner with cache.
func NewCachedGeocoder(inner Geocoder, cache Cache, ttl time.Duration, log *logger.Logger) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, cache: cache, ttl: ttl, log: log}
}

func (g *CachedGeocoder) Autocomplete(ctx context.Context, text string, limit int) ([]AddressSuggestion, error) {
	key := "suggest:" + strconv.Itoa(limit) + ":" + normalizeKey(text)

	var cached []AddressSuggestion
	if g.lookup(ctx, key, &cached) {
		return cached, nil
	}

	suggestions, err := g.inner.Autocomplete(ctx, text, limit)
	if err != nil {
		return nil, err
	}
	g.store(ctx, key, suggestions)
	return suggestions, nil
}

func (g *CachedGeocoder) PlaceDetails(ctx context.Context, placeID string) (geo.Coordinate, error) {
	return g.coordinate(ctx, "place:"+strings.ToUpper(strings.TrimSpace(placeID)), func() (geo.Coordinate, error) {
		return g.inner.PlaceDetails(ctx, placeID)
	})
}

func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	return g.coordinate(ctx, "geocode:"+normalizeKey(address), func() (geo.Coordinate, error) {
		return g.inner.Geocode(ctx, address)
	})
}

func (g *CachedGeocoder) coordinate(ctx context.Context, key string, fetch func() (geo.Coordinate, error)) (geo.Coordinate, error) {
	var cached geo.Coordinate
	if g.lookup(ctx, key, &cached) && cached.IsValid() {
		return cached, nil
	}

	coord, err := fetch()
	if err != nil {
		return geo.Coordinate{}, err
	}
	g.store(ctx, key, coord)
	return coord, nil
}

func (g *CachedGeocoder) lookup(ctx context.Context, key string, dst interface{}) bool {
	ok, err := g.cache.Get(ctx, key, dst)
	if err != nil {
		g.log.Warn("geocode cache read failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (g *CachedGeocoder) store(ctx context.Context, key string, value interface{}) {
	if err := g.cache.Set(ctx, key, value, g.ttl); err != nil {
		g.log.Warn("geocode cache write failed", "key", key, "error", err)
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
