package geocode

import (
	"context"
	"testing"
	"time"

	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

type countingGeocoder struct {
	autocompleteCalls int
	geocodeCalls      int
	placeCalls        int
}

func (g *countingGeocoder) Autocomplete(context.Context, string, int) ([]AddressSuggestion, error) {
	g.autocompleteCalls++
	return []AddressSuggestion{{ID: "1", ShortAddress: "12 Nguyễn Huệ", FullAddress: "12 Nguyễn Huệ, Quận 1"}}, nil
}

func (g *countingGeocoder) PlaceDetails(context.Context, string) (geo.Coordinate, error) {
	g.placeCalls++
	return geo.Coordinate{Latitude: 10.77, Longitude: 106.70}, nil
}

func (g *countingGeocoder) Geocode(context.Context, string) (geo.Coordinate, error) {
	g.geocodeCalls++
	return geo.Coordinate{Latitude: 21.02, Longitude: 105.85}, nil
}

func TestCachedGeocoderMemoryHitsAndExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, NewMemoryCache(clock), time.Minute, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cached.Geocode(ctx, "  Hoàn Kiếm   Hà Nội "); err != nil {
			t.Fatalf("Geocode returned error: %v", err)
		}
	}
	if _, err := cached.Geocode(ctx, "hoàn kiếm hà nội"); err != nil {
		t.Fatalf("Geocode returned error: %v", err)
	}
	if inner.geocodeCalls != 1 {
		t.Fatalf("expected a single upstream call for normalized keys, got %d", inner.geocodeCalls)
	}

	clock.Advance(2 * time.Minute)
	if _, err := cached.Geocode(ctx, "hoàn kiếm hà nội"); err != nil {
		t.Fatalf("Geocode returned error: %v", err)
	}
	if inner.geocodeCalls != 2 {
		t.Fatalf("expected expiry to force a refetch, got %d calls", inner.geocodeCalls)
	}
}

func TestCachedGeocoderRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, NewRedisCache(client, "geocode:"), time.Hour, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		suggestions, err := cached.Autocomplete(ctx, "nguyen hue", 5)
		if err != nil {
			t.Fatalf("Autocomplete returned error: %v", err)
		}
		if len(suggestions) != 1 || suggestions[0].ShortAddress != "12 Nguyễn Huệ" {
			t.Fatalf("unexpected suggestions %+v", suggestions)
		}
		if _, err := cached.PlaceDetails(ctx, "N1"); err != nil {
			t.Fatalf("PlaceDetails returned error: %v", err)
		}
	}

	if inner.autocompleteCalls != 1 || inner.placeCalls != 1 {
		t.Fatalf("expected one upstream call each, got autocomplete=%d place=%d", inner.autocompleteCalls, inner.placeCalls)
	}
	if !mr.Exists("geocode:place:N1") {
		t.Fatalf("expected place key in redis, keys=%v", mr.Keys())
	}
	if ttl := mr.TTL("geocode:place:N1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestCachedGeocoderFallsThroughOnCacheFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, NewRedisCache(client, "geocode:"), time.Hour, logger.Nop())

	coord, err := cached.Geocode(context.Background(), "Hà Nội")
	if err != nil {
		t.Fatalf("expected cache outage to be ignored, got %v", err)
	}
	if !coord.IsValid() || inner.geocodeCalls != 1 {
		t.Fatalf("expected upstream result, got %+v calls=%d", coord, inner.geocodeCalls)
	}
}
