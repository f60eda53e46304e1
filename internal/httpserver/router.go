package httpserver

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opsdash/internal/events"
	"opsdash/internal/incidents"
	"opsdash/internal/querycache"
)

type Deps struct {
	Logger   *slog.Logger
	Cache    *querycache.Cache
	Events   chan<- events.Event
	Tokens   events.TokenVerifier
	Gatherer prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Live events
	mux.Handle("/api/v1/events", &events.PushHandler{
		Out:    d.Events,
		Tokens: d.Tokens,
		Logger: d.Logger,
	})
	mux.Handle("/api/v1/route", events.RouteHandler{})

	// Incidents and RCA workflows
	src := incidents.CacheSource{Cache: d.Cache}
	mux.Handle("/api/v1/incidents", &incidents.ListHandler{Source: src, Logger: d.Logger})
	mux.Handle("/api/v1/rca-workflows", &incidents.WorkflowHandler{Source: src, Logger: d.Logger})

	// Pass-through resources
	for _, k := range []events.Key{
		events.KeyMetrics,
		events.KeyActiveAlerts,
		events.KeyRecentActions,
		events.KeyKnowledgeBase,
		events.KeyEscalations,
	} {
		mux.Handle("/api/v1/"+string(k), &querycache.Handler{Cache: d.Cache, Key: k, Logger: d.Logger})
	}
	mux.Handle("/api/v1/cache", &querycache.StatusHandler{Cache: d.Cache})

	// CORS wrapper (simple, for the dashboard UI).
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
