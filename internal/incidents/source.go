package incidents

import (
	"context"
	"fmt"

	"opsdash/internal/events"
	"opsdash/internal/querycache"
)

// Source supplies the current incident and RCA step lists.
type Source interface {
	Incidents(ctx context.Context) ([]Incident, error)
	Steps(ctx context.Context) ([]Step, error)
}

// CacheSource reads both lists through the query cache, so a stale key is
// refetched on the next read.
type CacheSource struct {
	Cache *querycache.Cache
}

func (s CacheSource) Incidents(ctx context.Context) ([]Incident, error) {
	v, err := s.Cache.Fetch(ctx, events.KeyIncidents)
	if err != nil {
		return nil, err
	}
	incs, ok := v.([]Incident)
	if !ok {
		return nil, fmt.Errorf("cache %q holds %T, want []Incident", events.KeyIncidents, v)
	}
	return incs, nil
}

func (s CacheSource) Steps(ctx context.Context) ([]Step, error) {
	v, err := s.Cache.Fetch(ctx, events.KeyRCAWorkflows)
	if err != nil {
		return nil, err
	}
	steps, ok := v.([]Step)
	if !ok {
		return nil, fmt.Errorf("cache %q holds %T, want []Step", events.KeyRCAWorkflows, v)
	}
	return steps, nil
}
