// Package metrics holds the Prometheus collectors for the sync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "opsdash"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	// EventsTotal counts live events by type. Labels: type, known (true, false)
	EventsTotal *prometheus.CounterVec

	// InvalidationsTotal counts cache keys marked stale. Labels: key
	InvalidationsTotal *prometheus.CounterVec

	// FetchesTotal counts upstream loads. Labels: key, result (ok, error)
	FetchesTotal *prometheus.CounterVec

	// FetchDurationSeconds measures upstream load latency. Labels: key
	FetchDurationSeconds *prometheus.HistogramVec

	// TransportConnects counts live transport (re)connections. Labels: transport
	TransportConnects *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "received_total",
			Help:      "Live events received, by type and whether the type is routed",
		}, []string{"type", "known"}),
		InvalidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Cache keys marked stale",
		}, []string{"key"}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetches_total",
			Help:      "Upstream loads by key and result",
		}, []string{"key", "result"}),
		FetchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream load latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"key"}),
		TransportConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connects_total",
			Help:      "Live transport connections established",
		}, []string{"transport"}),
	}
	reg.MustRegister(
		m.EventsTotal,
		m.InvalidationsTotal,
		m.FetchesTotal,
		m.FetchDurationSeconds,
		m.TransportConnects,
	)
	return m
}

func (m *Metrics) RecordEvent(eventType string, known bool) {
	if m == nil {
		return
	}
	// Unknown types share one label value.
	if !known {
		eventType = "unknown"
	}
	k := "false"
	if known {
		k = "true"
	}
	m.EventsTotal.WithLabelValues(eventType, k).Inc()
}

func (m *Metrics) RecordInvalidation(key string) {
	if m == nil {
		return
	}
	m.InvalidationsTotal.WithLabelValues(key).Inc()
}

func (m *Metrics) RecordFetch(key string, seconds float64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FetchesTotal.WithLabelValues(key, result).Inc()
	m.FetchDurationSeconds.WithLabelValues(key).Observe(seconds)
}

func (m *Metrics) RecordConnect(transport string) {
	if m == nil {
		return
	}
	m.TransportConnects.WithLabelValues(transport).Inc()
}
