// Package cache provides the injectable memoization layer for analytics
// query results. Caching is an optimization, never a correctness
// requirement: every implementation treats backend failures as misses, and
// InvalidateAll drops every entry wholesale. Callers key entries by filter
// fingerprint plus table version, so entries for a stale table are
// unreachable even before invalidation.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/funnelboard/funnelboard-backend/pkg/logger"
	"github.com/funnelboard/funnelboard-backend/pkg/redis"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	InvalidateAll(ctx context.Context) error
}

// Noop disables memoization entirely.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Noop) Set(context.Context, string, []byte)        {}
func (Noop) InvalidateAll(context.Context) error        { return nil }

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process cache for single-instance deployments and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

func (m *Memory) InvalidateAll(context.Context) error {
	m.mu.Lock()
	m.entries = map[string]memoryEntry{}
	m.mu.Unlock()
	return nil
}

const generationKey = "cache_generation"

// Redis shares cached results across instances. Keys carry a generation
// counter; InvalidateAll bumps the counter, which strands every existing
// entry until its TTL reaps it.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logg   *logger.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logg *logger.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logg: logg}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, ok, err := r.client.Get(ctx, r.qualifiedKey(ctx, key))
	if err != nil {
		if r.logg != nil {
			r.logg.Warn(ctx, "cache get failed, treating as miss")
		}
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return []byte(val), true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, r.qualifiedKey(ctx, key), string(value), r.ttl); err != nil && r.logg != nil {
		r.logg.Warn(ctx, "cache set failed")
	}
}

func (r *Redis) InvalidateAll(ctx context.Context) error {
	_, err := r.client.Incr(ctx, redis.Key(generationKey))
	return err
}

func (r *Redis) qualifiedKey(ctx context.Context, key string) string {
	gen, ok, err := r.client.Get(ctx, redis.Key(generationKey))
	if err != nil || !ok {
		gen = "0"
	}
	if _, convErr := strconv.ParseInt(gen, 10, 64); convErr != nil {
		gen = "0"
	}
	return redis.Key("cache", gen, key)
}
