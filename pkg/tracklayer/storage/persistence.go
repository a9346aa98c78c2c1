package storage

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
)

// PersistencePlugin mirrors committed events into a Store and restores
// prior history at registration by replaying stored events through the
// layer's Emit.
//
// Replayed events pass through the current pipeline and are re-stamped
// with fresh identity and context, the same as any other emit; the
// restoration carries the signal, not the original identity. Appends
// are suppressed while the replay is in flight so restored events are
// not written back a second time.
type PersistencePlugin struct {
	store  Store
	logger *slog.Logger

	restoring atomic.Bool
}

// NewPersistencePlugin creates a persistence plugin over store.
func NewPersistencePlugin(store Store, logger *slog.Logger) *PersistencePlugin {
	return &PersistencePlugin{
		store:  store,
		logger: logger,
	}
}

// Name implements the plugin contract.
func (p *PersistencePlugin) Name() string {
	return "persistence"
}

// Initialize replays stored events through the layer.
// A store that cannot be read fails registration; individual malformed
// records were already skipped by the store's Load.
func (p *PersistencePlugin) Initialize(layer *tracklayer.Layer) error {
	events, err := p.store.Load(context.Background())
	if err != nil {
		return err
	}

	p.restoring.Store(true)
	defer p.restoring.Store(false)

	for _, evt := range events {
		if _, err := layer.Emit(evt.Name, evt.Data, evt.CustomDimensions); err != nil {
			if p.logger != nil {
				p.logger.Warn("replay of stored event failed",
					slog.String("event", evt.Name),
					slog.String("event_id", evt.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return nil
}

// AfterEvent appends a committed event to the store.
func (p *PersistencePlugin) AfterEvent(evt *event.Event) {
	if p.restoring.Load() {
		return
	}
	if err := p.store.Append(context.Background(), evt); err != nil {
		if p.logger != nil {
			p.logger.Error("persist event failed",
				slog.String("event", evt.Name),
				slog.String("event_id", evt.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Destroy closes the underlying store.
func (p *PersistencePlugin) Destroy() error {
	return p.store.Close()
}
