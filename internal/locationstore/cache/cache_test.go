package cache

import (
	"context"
	"testing"
	"time"

	"gigwork_maps/internal/locationstore/repository"
	"gigwork_maps/platform/geo"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func TestCacheRoundTripAndExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	userID := uuid.New()
	at := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

	if _, ok, err := c.Get(ctx, userID); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	err := c.Set(ctx, repository.Location{
		UserID:     userID,
		Coordinate: geo.Coordinate{Latitude: 10.77, Longitude: 106.70},
		UpdatedAt:  at,
	})
	if err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	loc, ok, err := c.Get(ctx, userID)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if loc.Coordinate.Latitude != 10.77 || !loc.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected cached location %+v", loc)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, userID); ok {
		t.Fatalf("expected entry to expire")
	}
}
