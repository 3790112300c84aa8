package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// fetch-compute-render pipeline.
type Metrics struct {
	// Index API metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,no_data,error}
	FetchDuration prometheus.Histogram

	// Pipeline metrics.
	PipelineRuns        *prometheus.CounterVec // labels: outcome={success,no_data,invalid_range,error}
	PipelineDuration    prometheus.Histogram
	ObservationsPerRun  prometheus.Histogram
	JoinMissesPerRun    prometheus.Gauge
	SnapshotCacheLookup *prometheus.CounterVec // labels: result={hit,miss}
	SnapshotReady       prometheus.Gauge
}

// NewMetrics creates and registers all dashboard metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "houseprice",
			Name:      "fetch_requests_total",
			Help:      "Index API requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "houseprice",
			Name:      "fetch_duration_seconds",
			Help:      "Index API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "houseprice",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline executions by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "houseprice",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete collect-compute-join-color run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ObservationsPerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "houseprice",
			Name:      "observations_per_run",
			Help:      "Observations collected per pipeline run after drops.",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 2500, 5000},
		}),
		JoinMissesPerRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "houseprice",
			Name:      "join_misses",
			Help:      "Features without change data after the most recent join.",
		}),
		SnapshotCacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "houseprice",
			Name:      "snapshot_cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		SnapshotReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "houseprice",
			Name:      "snapshot_ready",
			Help:      "1 once at least one pipeline run has completed.",
		}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.PipelineRuns,
		m.PipelineDuration,
		m.ObservationsPerRun,
		m.JoinMissesPerRun,
		m.SnapshotCacheLookup,
		m.SnapshotReady,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "houseprice", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "houseprice", Name: "fetch_duration_seconds"}),
		PipelineRuns:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "houseprice", Name: "pipeline_runs_total"}, []string{"outcome"}),
		PipelineDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "houseprice", Name: "pipeline_duration_seconds"}),
		ObservationsPerRun:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "houseprice", Name: "observations_per_run"}),
		JoinMissesPerRun:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "houseprice", Name: "join_misses"}),
		SnapshotCacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "houseprice", Name: "snapshot_cache_lookups_total"}, []string{"result"}),
		SnapshotReady:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "houseprice", Name: "snapshot_ready"}),
	}
}
