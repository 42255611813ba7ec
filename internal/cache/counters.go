package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Counters is an atomic named-counter store. Implementations must make Incr a
// single atomic operation; the write path relies on that as its only
// concurrency control for version bookkeeping.
type Counters interface {
	// Incr adds one to the counter, initializing missing keys to zero first,
	// and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Get returns the current counter value, zero for missing keys.
	Get(ctx context.Context, key string) (int64, error)
}

// RedisCounters backs Counters with redis INCR/GET.
type RedisCounters struct {
	client *redis.Client
}

// NewRedisCounters wraps a redis client as a Counters store.
func NewRedisCounters(client *redis.Client) *RedisCounters {
	return &RedisCounters{client: client}
}

// Incr delegates to redis INCR, which is atomic server-side and treats missing
// keys as zero.
func (c *RedisCounters) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

// Get returns the counter value, zero when the key has never been bumped.
func (c *RedisCounters) Get(ctx context.Context, key string) (int64, error) {
	value, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// MemoryCounters is an in-process Counters store for tests and deployments
// without redis.
type MemoryCounters struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryCounters constructs an empty in-memory counter store.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{values: make(map[string]int64)}
}

// Incr adds one to the counter under the store's lock.
func (c *MemoryCounters) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key]++
	return c.values[key], nil
}

// Get returns the counter value, zero for missing keys.
func (c *MemoryCounters) Get(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}
