// Package storage provides event persistence for layer plugins.
//
// Stores hold committed events in the stable JSON wire shape. A store
// restore is best-effort: malformed stored records are skipped, never
// allowed to fail the whole load.
package storage

import (
	"context"
	"errors"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
)

// Store persists committed events.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores one committed event.
	Append(ctx context.Context, evt *event.Event) error

	// Load returns all stored events in append order.
	// Malformed records are skipped, not returned as errors.
	Load(ctx context.Context) ([]*event.Event, error)

	// Clear removes all stored events.
	Clear(ctx context.Context) error

	// Close releases any resources (connections, files).
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("event store closed")
