// Package upstream fetches dashboard resources from the IT-support REST API.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"opsdash/internal/events"
	"opsdash/internal/incidents"
	"opsdash/internal/querycache"
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Resource string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s: status %d", e.Resource, e.Code)
	}
	return fmt.Sprintf("upstream %s: status %d: %s", e.Resource, e.Code, e.Body)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
	}
}

// paths maps each cache key to the API route that serves it.
var paths = map[events.Key]string{
	events.KeyMetrics:       "/api/metrics",
	events.KeyIncidents:     "/api/incidents",
	events.KeyActiveAlerts:  "/api/alerts/active",
	events.KeyRecentActions: "/api/actions/recent",
	events.KeyKnowledgeBase: "/api/knowledge-base",
	events.KeyEscalations:   "/api/escalations",
	events.KeyRCAWorkflows:  "/api/rca-workflows",
}

func (c *Client) get(ctx context.Context, key events.Key, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+paths[key], nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Resource: string(key), Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *Client) Incidents(ctx context.Context) ([]incidents.Incident, error) {
	var res []incidents.Incident
	if err := c.get(ctx, events.KeyIncidents, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) RCASteps(ctx context.Context) ([]incidents.Step, error) {
	var res []incidents.Step
	if err := c.get(ctx, events.KeyRCAWorkflows, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Raw fetches a resource this service passes through without interpreting.
func (c *Client) Raw(ctx context.Context, key events.Key) (json.RawMessage, error) {
	if _, ok := paths[key]; !ok {
		return nil, fmt.Errorf("%w: %s", querycache.ErrUnknownKey, key)
	}
	var res json.RawMessage
	if err := c.get(ctx, key, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Loaders returns one cache loader per resource key.
func (c *Client) Loaders() map[events.Key]querycache.Loader {
	loaders := make(map[events.Key]querycache.Loader, len(paths))
	for _, k := range events.AllKeys() {
		key := k
		loaders[key] = func(ctx context.Context) (any, error) {
			return c.Raw(ctx, key)
		}
	}
	loaders[events.KeyIncidents] = func(ctx context.Context) (any, error) {
		return c.Incidents(ctx)
	}
	loaders[events.KeyRCAWorkflows] = func(ctx context.Context) (any, error) {
		return c.RCASteps(ctx)
	}
	return loaders
}
