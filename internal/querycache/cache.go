// Package querycache keeps the last fetched value of each dashboard resource
// and refetches it after the resource has been marked stale.
//
// Invalidate never blocks on I/O. Loads for the same key are coalesced, and
// each entry carries a generation number bumped on every invalidation: a load
// that started before the latest invalidation stores its value but leaves the
// entry stale, so no invalidation is ever lost to an in-flight refetch.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"opsdash/internal/events"
	"opsdash/internal/metrics"
)

var ErrUnknownKey = errors.New("querycache: unknown key")

// Loader fetches the current value of one resource.
type Loader func(ctx context.Context) (any, error)

type Options struct {
	// Eager starts a background refetch on every invalidation instead of
	// waiting for the next read.
	Eager bool
	// RefreshTimeout bounds every load. Loads are detached from the caller
	// that started them, since other readers may be waiting on the same one.
	// Defaults to 10s.
	RefreshTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

type entry struct {
	loader    Loader
	value     any
	loaded    bool
	stale     bool
	loading   bool
	gen       uint64
	err       error
	fetchedAt time.Time
}

type Cache struct {
	mu      sync.Mutex
	entries map[events.Key]*entry
	flight  singleflight.Group
	opts    Options
	wg      sync.WaitGroup
}

func New(loaders map[events.Key]Loader, opts Options) *Cache {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Cache{
		entries: make(map[events.Key]*entry, len(loaders)),
		opts:    opts,
	}
	for k, l := range loaders {
		c.entries[k] = &entry{loader: l}
	}
	return c
}

// Invalidate marks key stale. Unknown keys are ignored.
func (c *Cache) Invalidate(key events.Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.stale = true
		e.gen++
	}
	c.mu.Unlock()
	if !ok {
		c.opts.Logger.Debug("invalidate unknown cache key", "key", key)
		return
	}
	if c.opts.Eager {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if _, err := c.load(context.Background(), key, e); err != nil {
				c.opts.Logger.Warn("background refetch failed", "key", key, "err", err)
			}
		}()
	}
}

// Fetch returns the cached value for key, loading it first when it has never
// been loaded or has been invalidated since.
func (c *Cache) Fetch(ctx context.Context, key events.Key) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if e.loaded && !e.stale {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.load(ctx, key, e)
}

func (c *Cache) load(ctx context.Context, key events.Key, e *entry) (any, error) {
	ch := c.flight.DoChan(string(key), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.RefreshTimeout)
		defer cancel()

		c.mu.Lock()
		gen := e.gen
		e.loading = true
		c.mu.Unlock()

		start := time.Now()
		val, err := e.loader(loadCtx)
		c.opts.Metrics.RecordFetch(string(key), time.Since(start).Seconds(), err)

		c.mu.Lock()
		defer c.mu.Unlock()
		e.loading = false
		if err != nil {
			e.err = err
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		e.value = val
		e.loaded = true
		e.err = nil
		e.fetchedAt = time.Now().UTC()
		if e.gen == gen {
			e.stale = false
		}
		return val, nil
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until all background refetches started so far have finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// State is the loading/error view of one key.
type State struct {
	Key       events.Key `json:"key"`
	Loaded    bool       `json:"loaded"`
	Stale     bool       `json:"stale"`
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
}

func (c *Cache) State(key events.Key) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State{}, false
	}
	return e.state(key), true
}

// States returns the state of every key, sorted by key.
func (c *Cache) States() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]State, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, e.state(k))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (e *entry) state(key events.Key) State {
	s := State{
		Key:     key,
		Loaded:  e.loaded,
		Stale:   e.stale,
		Loading: e.loading,
	}
	if e.err != nil {
		s.Error = e.err.Error()
	}
	if !e.fetchedAt.IsZero() {
		t := e.fetchedAt
		s.FetchedAt = &t
	}
	return s
}
