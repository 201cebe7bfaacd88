// Package cache keeps the latest position of each user in Redis so peer
// polling does not hit PostgreSQL on every cycle.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gigwork_maps/internal/locationstore/repository"
	"gigwork_maps/platform/geo"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "location:latest:"
	DefaultTTL = 15 * time.Minute
)

type entry struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	AccuracyM *float64  `json:"accuracyM,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Cache stores latest positions keyed by user id.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New creates a cache; a non-positive ttl uses DefaultTTL.
func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func key(userID uuid.UUID) string {
	return keyPrefix + userID.String()
}

// Set stores loc as the latest position of its user.
func (c *Cache) Set(ctx context.Context, loc repository.Location) error {
	payload, err := json.Marshal(entry{
		Latitude:  loc.Coordinate.Latitude,
		Longitude: loc.Coordinate.Longitude,
		AccuracyM: loc.AccuracyM,
		UpdatedAt: loc.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode cached location: %w", err)
	}
	return c.client.Set(ctx, key(loc.UserID), payload, c.ttl).Err()
}

// Get returns the cached position. The bool is false on a miss.
func (c *Cache) Get(ctx context.Context, userID uuid.UUID) (repository.Location, bool, error) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return repository.Location{}, false, nil
	}
	if err != nil {
		return repository.Location{}, false, err
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return repository.Location{}, false, fmt.Errorf("decode cached location: %w", err)
	}
	return repository.Location{
		UserID:     userID,
		Coordinate: geo.Coordinate{Latitude: e.Latitude, Longitude: e.Longitude},
		AccuracyM:  e.AccuracyM,
		UpdatedAt:  e.UpdatedAt,
	}, true, nil
}
