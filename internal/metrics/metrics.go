// Package metrics collects run counters and exports them in the Prometheus
// textfile format for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "job_tracker"

// Metrics is owned by one run. Each instance has its own registry so tests
// and repeated runs never collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	// PostingsFetched counts postings delivered by each source.
	PostingsFetched *prometheus.CounterVec
	// PostingsKept is the kept count of the most recent flush.
	PostingsKept prometheus.Gauge
	// PostingsDropped is the per-reason drop count of the most recent flush.
	PostingsDropped *prometheus.GaugeVec
	// HistoryObserved counts history classifications.
	HistoryObserved *prometheus.CounterVec
	SourceErrors    *prometheus.CounterVec
	Flushes         prometheus.Counter
	LastFlush       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PostingsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "postings_fetched_total",
				Help:      "Postings delivered by sources",
			},
			[]string{"source"},
		),
		PostingsKept: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "postings_kept",
			Help:      "Postings that survived the relevance filter at the last flush",
		}),
		PostingsDropped: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "postings_dropped",
				Help:      "Postings dropped by the relevance filter at the last flush",
			},
			[]string{"reason"},
		),
		HistoryObserved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_observed_total",
				Help:      "History classifications by status (new, duplicate)",
			},
			[]string{"status"},
		),
		SourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_errors_total",
				Help:      "Sources that failed to deliver postings",
			},
			[]string{"source"},
		),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Artifact flushes performed",
		}),
		LastFlush: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_flush_timestamp_seconds",
			Help:      "Unix time of the last artifact flush",
		}),
	}

	m.registry.MustRegister(
		m.PostingsFetched,
		m.PostingsKept,
		m.PostingsDropped,
		m.HistoryObserved,
		m.SourceErrors,
		m.Flushes,
		m.LastFlush,
	)
	return m
}

// RecordFetched adds n postings for source.
func (m *Metrics) RecordFetched(source string, n int) {
	m.PostingsFetched.WithLabelValues(source).Add(float64(n))
}

// RecordSourceError counts a failed source.
func (m *Metrics) RecordSourceError(source string) {
	m.SourceErrors.WithLabelValues(source).Inc()
}

// RecordHistory counts one history classification.
func (m *Metrics) RecordHistory(status string) {
	m.HistoryObserved.WithLabelValues(status).Inc()
}

// RecordFlush replaces the filter gauges with the outcome of a flush.
func (m *Metrics) RecordFlush(kept int, dropped map[string]int, at time.Time) {
	m.PostingsKept.Set(float64(kept))
	m.PostingsDropped.Reset()
	for reason, n := range dropped {
		m.PostingsDropped.WithLabelValues(reason).Set(float64(n))
	}
	m.Flushes.Inc()
	m.LastFlush.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes all metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
