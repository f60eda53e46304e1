package events

import (
	"context"
	"log/slog"

	"opsdash/internal/metrics"
)

// Invalidator marks a cached resource stale. Implementations must not block
// on the refetch.
type Invalidator interface {
	Invalidate(key Key)
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(key Key)

func (f InvalidatorFunc) Invalidate(key Key) { f(key) }

// Dispatcher consumes live events one at a time and invalidates the keys
// each one routes to.
type Dispatcher struct {
	Cache   Invalidator
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func NewDispatcher(cache Invalidator, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		Cache:   cache,
		Logger:  logger,
		Metrics: m,
	}
}

// Apply routes e and invalidates every resulting key. It returns the keys
// it invalidated.
func (d *Dispatcher) Apply(e Event) KeySet {
	keys := Route(e)
	known := Known(e.Type)
	d.Metrics.RecordEvent(string(e.Type), known)
	if !known {
		d.Logger.Debug("ignoring live event", "type", e.Type)
		return keys
	}
	for _, k := range keys.Sorted() {
		d.Cache.Invalidate(k)
		d.Metrics.RecordInvalidation(string(k))
	}
	d.Logger.Debug("live event routed", "type", e.Type, "keys", keys.Sorted())
	return keys
}

// Run applies events from in until it is closed or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, in <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-in:
			if !ok {
				return nil
			}
			d.Apply(e)
		}
	}
}
