package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ObjectStore caches JSON-serializable values under string keys. Get reports a
// miss with (false, nil) rather than an error.
type ObjectStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RedisObjects backs ObjectStore with redis string values holding JSON.
type RedisObjects struct {
	client *redis.Client
}

// NewRedisObjects wraps a redis client as an ObjectStore.
func NewRedisObjects(client *redis.Client) *RedisObjects {
	return &RedisObjects{client: client}
}

// Get loads and unmarshals the cached value into dest.
func (o *RedisObjects) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := o.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set marshals and stores the value with the provided TTL.
func (o *RedisObjects) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return o.client.Set(ctx, key, payload, ttl).Err()
}

// MemoryObjects is an in-process ObjectStore for tests and deployments without
// redis. Entries expire lazily on read.
type MemoryObjects struct {
	mu      sync.Mutex
	entries map[string]memoryObjectEntry
	clock   func() time.Time
}

type memoryObjectEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemoryObjects constructs an empty in-memory object cache.
func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{entries: make(map[string]memoryObjectEntry), clock: time.Now}
}

// Get loads and unmarshals the cached value into dest.
func (o *MemoryObjects) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	o.mu.Lock()
	entry, ok := o.entries[key]
	if ok && !entry.expiresAt.IsZero() && o.clock().After(entry.expiresAt) {
		delete(o.entries, key)
		ok = false
	}
	o.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set marshals and stores the value; a zero TTL stores it without expiry.
func (o *MemoryObjects) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryObjectEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = o.clock().Add(ttl)
	}
	o.mu.Lock()
	o.entries[key] = entry
	o.mu.Unlock()
	return nil
}
