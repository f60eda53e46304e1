package events

import (
	"encoding/json"
	"net/http"
	"strings"

	"log/slog"
)

// TokenVerifier checks a bearer token presented by an event publisher.
type TokenVerifier interface {
	Verify(token string) error
}

const maxPushBody = 1 << 20

// PushHandler accepts live events over HTTP (for backends that cannot hold a
// WebSocket) and queues them for the dispatcher.
type PushHandler struct {
	Out    chan<- Event
	Tokens TokenVerifier
	Logger *slog.Logger
}

func (h *PushHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.Tokens != nil {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := h.Tokens.Verify(strings.TrimPrefix(authz, "Bearer ")); err != nil {
			h.Logger.Warn("rejected event push", "err", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxPushBody)
	var e Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if e.Type == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	select {
	case h.Out <- e:
	case <-r.Context().Done():
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// RouteHandler reports which keys an event type would invalidate, without
// touching the cache.
type RouteHandler struct{}

func (RouteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	t := Type(r.URL.Query().Get("type"))
	if t == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	keys := Route(Event{Type: t}).Sorted()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"type":  t,
		"known": Known(t),
		"keys":  keys,
	})
}
