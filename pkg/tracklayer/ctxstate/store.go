// Package ctxstate holds the ambient key-scoped state that is merged
// into every event as an immutable snapshot at creation time.
//
// Values are normalized on entry to a closed JSON-representable tree
// (map[string]any, []any, and scalars). Values that have no JSON
// representation, such as functions and channels, are silently dropped.
// That makes deep-merge and snapshot total operations over the stored
// shape: a snapshot always succeeds and never aliases live state.
package ctxstate

import "sync"

// Store is the ambient context store. One layer instance owns exactly
// one Store.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]any)}
}

// Get returns the live mapping. Callers must not rely on mutation
// isolation; use Snapshot for an independent copy.
func (s *Store) Get() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Set replaces the value at key wholesale. A value with no JSON
// representation is dropped, which clears the key; the previous value
// never survives a Set.
func (s *Store) Set(key string, value any) {
	normalized, ok := normalize(value)
	s.mu.Lock()
	if ok {
		s.data[key] = normalized
	} else {
		delete(s.data, key)
	}
	s.mu.Unlock()
}

// Update deep-merges partial into the existing value at key.
//
// If the existing value is a mapping, partial is merged key-by-key,
// recursing into nested mappings and overwriting arrays and scalars
// outright. If the existing value is absent or not a mapping, the key
// is initialized to a copy of partial.
func (s *Store) Update(key string, partial map[string]any) {
	normalized, ok := normalize(partial)
	if !ok {
		return
	}
	patch, ok := normalized.(map[string]any)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[key].(map[string]any)
	if !ok {
		s.data[key] = patch
		return
	}
	s.data[key] = mergeMaps(existing, patch)
}

// Remove deletes key if present; no-op otherwise.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

// Reset clears all keys.
func (s *Store) Reset() {
	s.mu.Lock()
	s.data = make(map[string]any)
	s.mu.Unlock()
}

// Snapshot returns a structural deep copy with a lifetime independent
// of the live store.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.data)
}

// Len returns the number of top-level keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// mergeMaps merges patch into dst in place and returns dst.
// Both maps are already normalized, so patch values can be adopted
// without copying.
func mergeMaps(dst, patch map[string]any) map[string]any {
	for k, v := range patch {
		existing, ok := dst[k].(map[string]any)
		if ok {
			if nested, isMap := v.(map[string]any); isMap {
				dst[k] = mergeMaps(existing, nested)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}
