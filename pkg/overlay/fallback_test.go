package overlay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memOverlay is an in-memory Client used to exercise FallbackOverlay's
// cache-first/DHT-fallback logic without any network dependency.
type memOverlay struct {
	mu      sync.Mutex
	data    map[string]string
	putErr  error
	getErr  error
	getMiss bool
}

func newMemOverlay() *memOverlay {
	return &memOverlay{data: make(map[string]string)}
}

func (m *memOverlay) Put(ctx context.Context, key, value string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memOverlay) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	if m.getMiss {
		return "", false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func TestFallbackOverlay(t *testing.T) {
	t.Run("PutWritesToBothDHTAndCache", func(t *testing.T) {
		dht := newMemOverlay()
		cache := newMemOverlay()
		fo := NewFallbackOverlay(dht, cache)

		require.NoError(t, fo.Put(context.Background(), "did:agentweb:abc", `{"endpoint":"http://x"}`))

		_, foundDHT, _ := dht.Get(context.Background(), "did:agentweb:abc")
		_, foundCache, _ := cache.Get(context.Background(), "did:agentweb:abc")
		assert.True(t, foundDHT)
		assert.True(t, foundCache)
	})

	t.Run("PutSucceedsEvenIfCacheWriteFails", func(t *testing.T) {
		dht := newMemOverlay()
		cache := newMemOverlay()
		cache.putErr = errors.New("cache unreachable")
		fo := NewFallbackOverlay(dht, cache)

		err := fo.Put(context.Background(), "did:agentweb:abc", "value")
		assert.NoError(t, err)

		_, found, _ := dht.Get(context.Background(), "did:agentweb:abc")
		assert.True(t, found)
	})

	t.Run("PutFailsIfDHTWriteFails", func(t *testing.T) {
		dht := newMemOverlay()
		dht.putErr = errors.New("dht unreachable")
		cache := newMemOverlay()
		fo := NewFallbackOverlay(dht, cache)

		err := fo.Put(context.Background(), "did:agentweb:abc", "value")
		assert.Error(t, err)
	})

	t.Run("GetPrefersCache", func(t *testing.T) {
		dht := newMemOverlay()
		cache := newMemOverlay()
		_ = dht.Put(context.Background(), "k", "from-dht")
		_ = cache.Put(context.Background(), "k", "from-cache")
		fo := NewFallbackOverlay(dht, cache)

		value, found, err := fo.Get(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "from-cache", value)
	})

	t.Run("GetFallsBackToDHTOnCacheMiss", func(t *testing.T) {
		dht := newMemOverlay()
		cache := newMemOverlay()
		cache.getMiss = true
		_ = dht.Put(context.Background(), "k", "from-dht")
		fo := NewFallbackOverlay(dht, cache)

		value, found, err := fo.Get(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "from-dht", value)
	})

	t.Run("GetFallsBackToDHTOnCacheError", func(t *testing.T) {
		dht := newMemOverlay()
		cache := newMemOverlay()
		cache.getErr = errors.New("cache timeout")
		_ = dht.Put(context.Background(), "k", "from-dht")
		fo := NewFallbackOverlay(dht, cache)

		value, found, err := fo.Get(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "from-dht", value)
	})

	t.Run("GetReturnsNotFoundWhenNeitherHasIt", func(t *testing.T) {
		dht := newMemOverlay()
		cache := newMemOverlay()
		fo := NewFallbackOverlay(dht, cache)

		_, found, err := fo.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
