package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"opsdash/internal/events"
	"opsdash/internal/logging"
)

func recv(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestDecodeEvent(t *testing.T) {
	e, err := decodeEvent([]byte(`{"type":"escalation_created","data":{"level":2}}`))
	require.NoError(t, err)
	assert.Equal(t, events.TypeEscalationCreated, e.Type)

	_, err = decodeEvent([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, errEmptyType)

	_, err = decodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestWSSourceReadsAndResyncsAfterReconnect(t *testing.T) {
	var conns int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		if atomic.AddInt32(&conns, 1) == 1 {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"metrics_updated"}`))
			_ = c.WriteMessage(websocket.TextMessage, []byte(`garbage`))
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"incident_created","data":{"id":3}}`))
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
			return
		}
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"action_created"}`))
		// Hold the second connection open until the client goes away.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	src := NewWSSource("ws"+strings.TrimPrefix(srv.URL, "http"), logging.Discard(), nil)
	src.Limiter = rate.NewLimiter(rate.Inf, 1)
	src.Header = func() (http.Header, error) {
		h := http.Header{}
		h.Set("Authorization", "Bearer tok")
		return h, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan events.Event, 8)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, out) }()

	assert.Equal(t, events.TypeMetricsUpdated, recv(t, out).Type)
	assert.Equal(t, events.TypeIncidentCreated, recv(t, out).Type)
	assert.Equal(t, events.TypeForceRefresh, recv(t, out).Type, "reconnect triggers a full refresh")
	assert.Equal(t, events.TypeActionCreated, recv(t, out).Type)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("websocket source did not stop")
	}
}

func TestWSSourceResyncsWhenBackendWasDownAtStart(t *testing.T) {
	var attempts int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"escalation_created"}`))
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	src := NewWSSource("ws"+strings.TrimPrefix(srv.URL, "http"), logging.Discard(), nil)
	src.Limiter = rate.NewLimiter(rate.Inf, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan events.Event, 4)
	go func() { _ = src.Run(ctx, out) }()

	assert.Equal(t, events.TypeForceRefresh, recv(t, out).Type, "first successful dial after a failure resyncs")
	assert.Equal(t, events.TypeEscalationCreated, recv(t, out).Type)
}

type fakeListener struct {
	ch     chan *pq.Notification
	listen error
	closed atomic.Bool
}

func (f *fakeListener) Listen(string) error                          { return f.listen }
func (f *fakeListener) NotificationChannel() <-chan *pq.Notification { return f.ch }
func (f *fakeListener) Ping() error                                  { return nil }
func (f *fakeListener) Close() error                                 { f.closed.Store(true); return nil }

func TestNotifySource(t *testing.T) {
	fl := &fakeListener{ch: make(chan *pq.Notification, 4)}
	src := NewNotifySource("postgres://unused", "dashboard_events", logging.Discard(), nil)
	src.newListener = func(string, pq.EventCallbackType) listener { return fl }

	fl.ch <- &pq.Notification{Channel: "dashboard_events", Extra: `{"type":"knowledge_base_updated"}`}
	fl.ch <- &pq.Notification{Channel: "dashboard_events", Extra: `{}`}
	fl.ch <- nil
	fl.ch <- &pq.Notification{Channel: "dashboard_events", Extra: `{"type":"escalation_updated"}`}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan events.Event, 4)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, out) }()

	assert.Equal(t, events.TypeKnowledgeBaseUpdated, recv(t, out).Type)
	assert.Equal(t, events.TypeForceRefresh, recv(t, out).Type)
	assert.Equal(t, events.TypeEscalationUpdated, recv(t, out).Type)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, fl.closed.Load())
}

func TestNotifySourceListenError(t *testing.T) {
	fl := &fakeListener{ch: make(chan *pq.Notification), listen: errors.New("no such db")}
	src := NewNotifySource("postgres://unused", "dashboard_events", logging.Discard(), nil)
	src.newListener = func(string, pq.EventCallbackType) listener { return fl }

	err := src.Run(context.Background(), make(chan events.Event))
	assert.ErrorContains(t, err, "no such db")
}

type funcSource struct {
	name string
	run  func(ctx context.Context, out chan<- events.Event) error
}

func (f funcSource) Name() string { return f.name }
func (f funcSource) Run(ctx context.Context, out chan<- events.Event) error {
	return f.run(ctx, out)
}

func TestRunAll(t *testing.T) {
	out := make(chan events.Event, 2)
	blocking := funcSource{name: "blocking", run: func(ctx context.Context, out chan<- events.Event) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	failing := funcSource{name: "failing", run: func(ctx context.Context, out chan<- events.Event) error {
		out <- events.Event{Type: events.TypeActionCreated}
		return errors.New("boom")
	}}

	err := RunAll(context.Background(), out, blocking, failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing: boom")
	assert.Equal(t, events.TypeActionCreated, (<-out).Type)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, RunAll(ctx, out, blocking))
}
