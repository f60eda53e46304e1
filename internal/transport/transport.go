// Package transport delivers live events from the backend onto a channel
// read by a single events.Dispatcher.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"opsdash/internal/events"
)

// Source produces live events until ctx is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- events.Event) error
}

var errEmptyType = errors.New("event has no type")

func decodeEvent(data []byte) (events.Event, error) {
	var e events.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return e, errEmptyType
	}
	return e, nil
}

// resync is sent after a reconnect, since events may have been missed while
// the connection was down.
var resync = events.Event{Type: events.TypeForceRefresh}

func emit(ctx context.Context, out chan<- events.Event, e events.Event) error {
	select {
	case out <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunAll runs every source concurrently, all writing to out. It returns when
// ctx is cancelled or the first source fails. out is never closed here since
// other writers (the HTTP push endpoint) may share it.
func RunAll(ctx context.Context, out chan<- events.Event, sources ...Source) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if err := src.Run(ctx, out); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
