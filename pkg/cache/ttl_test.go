package cache_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoelker/xen-guest-agent/pkg/cache"
)

func TestTTLBasicOperations(t *testing.T) {
	t.Parallel()

	ttl := cache.NewTTL[string, string](time.Minute)
	require.NotNil(t, ttl, "expected cache instance")

	ttl.Add("data/os_name", "Debian")

	val, ok := ttl.Get("data/os_name")
	assert.True(t, ok, "expected cache hit")
	assert.Equal(t, "Debian", val)
	assert.True(t, ttl.Unchanged("data/os_name", "Debian"))
	assert.False(t, ttl.Unchanged("data/os_name", "Alpine"))
	assert.Equal(t, 1, ttl.Len())

	assert.True(t, ttl.Remove("data/os_name"), "expected successful removal")
	assert.Equal(t, 0, ttl.Len(), "expected empty cache after removal")
	assert.False(t, ttl.Unchanged("data/os_name", "Debian"))
}

func TestTTLExpiration(t *testing.T) {
	t.Parallel()

	ttl := cache.NewTTL[string, string](10 * time.Millisecond)
	require.NotNil(t, ttl, "expected cache instance")

	ttl.Add("data/meminfo_free", "1024")
	time.Sleep(30 * time.Millisecond)

	_, ok := ttl.Get("data/meminfo_free")
	assert.False(t, ok, "expected cache miss for expired entry")
}

func TestTTLRemoveFunc(t *testing.T) {
	t.Parallel()

	ttl := cache.NewTTL[string, string](time.Minute)
	ttl.Add("data/net/2", "eth0")
	ttl.Add("data/net/2/mac", "aa")
	ttl.Add("data/net/20", "eth1")

	removed := ttl.RemoveFunc(func(key string) bool {
		return key == "data/net/2" || strings.HasPrefix(key, "data/net/2/")
	})

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, ttl.Len())
	assert.True(t, ttl.Unchanged("data/net/20", "eth1"))
}

func TestTTLEvictCallback(t *testing.T) {
	t.Parallel()

	type evictEvent struct {
		key   string
		value string
	}

	events := make(chan evictEvent, 1)
	ttl := cache.NewTTL[string, string](
		time.Minute,
		cache.WithCapacity[string, string](1),
		cache.WithEvict[string, string](func(key string, value string) {
			events <- evictEvent{key: key, value: value}
		}),
	)
	require.NotNil(t, ttl, "expected cache instance")

	ttl.Add("first", "1")
	ttl.Add("second", "2") // should evict "first"

	select {
	case evt := <-events:
		assert.Equal(t, "first", evt.key, "unexpected evicted key")
		assert.Equal(t, "1", evt.value, "unexpected evicted value")
	default:
		require.Fail(t, "expected eviction event")
	}
}

func TestTTLDisabledIsNilSafe(t *testing.T) {
	t.Parallel()

	var ttl *cache.TTL[string, string]
	require.Nil(t, cache.NewTTL[string, string](0), "expected nil cache for zero ttl")

	ttl.Add("k", "v")
	assert.False(t, ttl.Unchanged("k", "v"))
	assert.False(t, ttl.Remove("k"))
	assert.Equal(t, 0, ttl.RemoveFunc(func(string) bool { return true }))
	assert.Equal(t, 0, ttl.Len())
}
