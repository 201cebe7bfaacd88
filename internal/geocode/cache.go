package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Cache stores JSON-encodable lookup results with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// cacheEntry holds a cached payload with expiration.
type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is a process-local cache used when no Redis is configured.
type MemoryCache struct {
	clock   clockwork.Clock
	entries map[string]cacheEntry
	mu      sync.RWMutex
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(clock clockwork.Clock) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCache{
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.clock.Now().After(entry.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cacheEntry{payload: payload, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

// Clear removes all cached entries.
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]cacheEntry)
}

// RedisCache shares lookups between API replicas and the scheduler.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache wraps client; keys are namespaced under prefix.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	payload, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, payload, ttl).Err()
}
