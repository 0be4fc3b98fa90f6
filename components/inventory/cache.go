package inventory

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// ttlCache is an in-memory cache whose entries expire after ttl.
// A non-positive ttl disables caching. A positive limit caps the entry count:
// at the limit, set sweeps expired entries and then evicts the entry closest
// to expiry.
type ttlCache[V any] struct {
	ttl     time.Duration
	limit   int
	mu      sync.RWMutex
	entries map[string]cachedEntry[V]
}

type cachedEntry[V any] struct {
	value   V
	expires time.Time
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{ttl: ttl, entries: make(map[string]cachedEntry[V])}
}

func (c *ttlCache[V]) getOrCompute(key string, compute func() (V, error)) (V, error) {
	if value, ok := c.get(key); ok {
		return value, nil
	}
	value, err := compute()
	if err != nil {
		return value, err
	}
	c.set(key, value)
	return value, nil
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	var zero V
	if c == nil || c.ttl <= 0 {
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) set(key string, value V) {
	if c == nil || c.ttl <= 0 {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && c.limit > 0 && len(c.entries) >= c.limit {
		c.evictLocked(now)
	}
	c.entries[key] = cachedEntry[V]{value: value, expires: now.Add(c.ttl)}
}

func (c *ttlCache[V]) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || entry.expires.Before(oldest) {
			oldestKey, oldest = k, entry.expires
		}
	}
	if len(c.entries) >= c.limit && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *ttlCache[V]) len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// purge drops every entry.
func (c *ttlCache[V]) purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]cachedEntry[V])
	c.mu.Unlock()
}

// RenderCache memoizes rendered chart HTML.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// ChartCache is an in-memory TTL cache for rendered charts.
type ChartCache struct {
	cache *ttlCache[string]
}

// NewChartCache builds a cache with the provided TTL.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{cache: newTTLCache[string](ttl)}
}

// GetOrRender returns a cached entry or renders and stores a new one.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	return c.cache.getOrCompute(key, render)
}

// maxCachedViews caps the pages memoized for one catalog version.
const maxCachedViews = 256

// ViewCache memoizes derived views keyed on the catalog version and the
// full view request, so a new snapshot never serves a stale page. Only the
// newest version seen is retained.
type ViewCache struct {
	cache *ttlCache[ViewResult]

	mu      sync.Mutex
	version uint64
}

// NewViewCache builds a view cache with the provided TTL.
func NewViewCache(ttl time.Duration) *ViewCache {
	cache := newTTLCache[ViewResult](ttl)
	cache.limit = maxCachedViews
	return &ViewCache{cache: cache}
}

// Derive returns the cached view for (version, req) or computes it from items.
// A version older than the newest one seen is derived without caching.
func (c *ViewCache) Derive(version uint64, items []Item, req ViewRequest) ViewResult {
	if !c.observe(version) {
		result := Derive(items, req)
		result.Items = cloneItems(result.Items)
		return result
	}
	key := strconv.FormatUint(version, 10) + ":" + hashKey(req)
	result, _ := c.cache.getOrCompute(key, func() (ViewResult, error) {
		return Derive(items, req), nil
	})
	result.Items = cloneItems(result.Items)
	return result
}

// observe advances the retained version, dropping pages of older ones, and
// reports whether version may be cached.
func (c *ViewCache) observe(version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case version > c.version:
		c.version = version
		c.cache.purge()
	case version < c.version:
		return false
	}
	return true
}

// Len returns the number of memoized views.
func (c *ViewCache) Len() int {
	return c.cache.len()
}

// Purge drops every memoized view.
func (c *ViewCache) Purge() {
	c.cache.purge()
}

// hashKey returns a deterministic hash of the JSON encoding of v.
func hashKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
