package inventory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartCacheStoresEntry(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
}

func TestChartCacheExpires(t *testing.T) {
	cache := NewChartCache(2 * time.Millisecond)
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestViewCacheKeysOnVersion(t *testing.T) {
	cache := NewViewCache(time.Minute)
	req := ViewRequest{Page: 1}

	first := cache.Derive(1, sampleItems(), req)
	assert.Equal(t, 3, first.TotalItems)

	// same version serves the memoized page even if the slice differs
	cached := cache.Derive(1, sampleItems()[:1], req)
	assert.Equal(t, 3, cached.TotalItems)

	fresh := cache.Derive(2, sampleItems()[:1], req)
	assert.Equal(t, 1, fresh.TotalItems)
}

func TestViewCacheReturnsCopies(t *testing.T) {
	cache := NewViewCache(time.Minute)
	req := ViewRequest{Page: 1}
	first := cache.Derive(1, sampleItems(), req)
	first.Items[0].Name = "mutated"
	second := cache.Derive(1, sampleItems(), req)
	assert.Equal(t, "Blue Shirt", second.Items[0].Name)
}

func TestViewCacheRetainsOnlyNewestVersion(t *testing.T) {
	cache := NewViewCache(time.Minute)
	items := sampleItems()
	for version := uint64(1); version <= 500; version++ {
		for i := range 10 {
			cache.Derive(version, items, ViewRequest{Page: 1, Search: fmt.Sprintf("term-%d", i)})
		}
	}
	assert.Equal(t, 10, cache.Len())

	// an older snapshot is derived but not memoized
	old := cache.Derive(3, items[:1], ViewRequest{Page: 1})
	assert.Equal(t, 1, old.TotalItems)
	assert.Equal(t, 10, cache.Len())
}

func TestViewCacheCapsEntriesPerVersion(t *testing.T) {
	cache := NewViewCache(time.Minute)
	items := sampleItems()
	for i := range maxCachedViews * 3 {
		cache.Derive(1, items, ViewRequest{Page: 1, Search: fmt.Sprintf("q%d", i)})
	}
	assert.Equal(t, maxCachedViews, cache.Len())
}

func TestTTLCacheLimitSweepsExpired(t *testing.T) {
	cache := newTTLCache[string](2 * time.Millisecond)
	cache.limit = 2
	cache.set("a", "1")
	cache.set("b", "2")
	time.Sleep(5 * time.Millisecond)
	cache.set("c", "3")

	assert.Equal(t, 1, cache.len())
	value, ok := cache.get("c")
	require.True(t, ok)
	assert.Equal(t, "3", value)
}
