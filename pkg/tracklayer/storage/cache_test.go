package storage

import (
	"context"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
)

func TestCacheAppendLoadOrder(t *testing.T) {
	store := NewCacheStore(gocache.NoExpiration)
	defer store.Close()
	ctx := context.Background()

	names := []string{"page.view", "cart.add", "cart.checkout"}
	for _, name := range names {
		require.NoError(t, store.Append(ctx, event.New(name)))
	}

	events, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, name := range names {
		assert.Equal(t, name, events[i].Name)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	store := NewCacheStore(20 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, event.New("t.test")))
	time.Sleep(50 * time.Millisecond)

	events, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, events, "events past the TTL must not restore")
}

func TestCacheClear(t *testing.T) {
	store := NewCacheStore(gocache.NoExpiration)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, event.New("t.test")))
	require.NoError(t, store.Clear(ctx))

	events, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCacheClosed(t *testing.T) {
	store := NewCacheStore(gocache.NoExpiration)
	require.NoError(t, store.Close())

	err := store.Append(context.Background(), event.New("t.test"))
	assert.ErrorIs(t, err, ErrStoreClosed)
}
