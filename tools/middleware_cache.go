package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/petal-labs/conduit/core"
)

// Cache stores tool results.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// CacheKeyFunc derives a cache key for one call.
type CacheKeyFunc func(ctx context.Context, args json.RawMessage) string

// DefaultCacheKey is "<tool>/<mode>/<hash of args>". Search tools answer the
// same query differently per mode.
func DefaultCacheKey(ctx context.Context, args json.RawMessage) string {
	sum := strconv.FormatUint(xxhash.Sum64(args), 16)
	return toolName(ctx) + "/" + string(core.SearchModeFrom(ctx)) + "/" + sum
}

// WithCache remembers successful results for ttl under DefaultCacheKey.
func WithCache(cache Cache, ttl time.Duration) Middleware {
	return WithCacheKey(cache, ttl, DefaultCacheKey)
}

// WithCacheKey is WithCache with a caller-chosen key.
func WithCacheKey(cache Cache, ttl time.Duration, key CacheKeyFunc) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			k := key(ctx, args)
			if v, hit := cache.Get(k); hit {
				return v, nil
			}
			v, err := next(ctx, args)
			if err == nil {
				cache.Set(k, v, ttl)
			}
			return v, err
		}
	}
}

// DefaultCacheEntries bounds a MemoryCache created with a limit of zero.
const DefaultCacheEntries = 512

// MemoryCache is a process-local Cache holding at most a fixed number of
// entries. When full, the entry closest to expiry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	limit   int
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	value   any
	expires time.Time
}

// NewMemoryCache returns an empty cache holding up to limit entries.
func NewMemoryCache(limit int) *MemoryCache {
	if limit <= 0 {
		limit = DefaultCacheEntries
	}
	return &MemoryCache{limit: limit, entries: map[string]entry{}, now: time.Now}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok && c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, ok
}

func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.limit {
		c.evictLocked()
	}
	c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops every expired entry, or the soonest-expiring one when
// nothing has expired.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	var (
		victim string
		soon   time.Time
	)
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
			continue
		}
		if victim == "" || e.expires.Before(soon) {
			victim, soon = k, e.expires
		}
	}
	if len(c.entries) >= c.limit && victim != "" {
		delete(c.entries, victim)
	}
}
