package querycache

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"opsdash/internal/events"
)

// Handler serves the cached value of one resource as JSON.
type Handler struct {
	Cache  *Cache
	Key    events.Key
	Logger *slog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	v, err := h.Cache.Fetch(r.Context(), h.Key)
	if err != nil {
		if errors.Is(err, ErrUnknownKey) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Logger.Error("fetch resource", "key", h.Key, "err", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// StatusHandler reports the loading/error state of every key.
type StatusHandler struct {
	Cache *Cache
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Cache.States())
}
