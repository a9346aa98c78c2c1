package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
)

// CacheStore is a TTL-bounded in-memory event store backed by go-cache.
// Events expire after the configured TTL, which suits session-scoped
// restores where stale history should not come back. Data is lost when
// the process exits.
type CacheStore struct {
	cache *gocache.Cache

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// NewCacheStore creates a cache store. Events expire after ttl; pass
// gocache.NoExpiration to keep them for the process lifetime.
func NewCacheStore(ttl time.Duration) *CacheStore {
	cleanup := ttl
	if cleanup <= 0 {
		cleanup = 0
	}
	return &CacheStore{
		cache: gocache.New(ttl, cleanup),
	}
}

// Append implements Store.
func (c *CacheStore) Append(_ context.Context, evt *event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}
	if err := evt.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	c.seq++
	key := fmt.Sprintf("%020d", c.seq)
	c.cache.Set(key, payload, gocache.DefaultExpiration)
	return nil
}

// Load implements Store. Entries that fail to parse are skipped.
func (c *CacheStore) Load(_ context.Context) ([]*event.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrStoreClosed
	}

	items := c.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var events []*event.Event
	for _, k := range keys {
		payload, ok := items[k].Object.([]byte)
		if !ok {
			continue
		}
		evt, err := event.Unmarshal(payload)
		if err != nil {
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}

// Clear implements Store.
func (c *CacheStore) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}
	c.cache.Flush()
	return nil
}

// Close implements Store. Safe to call multiple times.
func (c *CacheStore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.cache.Flush()
	return nil
}
