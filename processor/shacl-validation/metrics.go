package shaclvalidation

import (
	"time"

	"github.com/c360studio/semstreams/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsService groups this component's metrics in the registry.
const metricsService = "shaclvalidation"

// Metrics holds Prometheus metrics for validation runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	resultsTotal    prometheus.Counter
	entitiesTotal   prometheus.Counter
	graphsPosted    prometheus.Counter
	activeRuns      prometheus.Gauge
	publishFailures prometheus.Counter
}

// NewMetrics creates and registers the component metrics.
// Returns nil when registry is nil.
func NewMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semstreams_shaclvalidation_runs_total",
				Help: "Total number of validation runs by outcome",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "semstreams_shaclvalidation_run_duration_seconds",
				Help:    "Duration of validation runs",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300, 900},
			},
			[]string{"status"},
		),
		resultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "semstreams_shaclvalidation_results_total",
			Help: "Total number of validation results reported",
		}),
		entitiesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "semstreams_shaclvalidation_entities_published_total",
			Help: "Total number of result entities published for graph ingestion",
		}),
		graphsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "semstreams_shaclvalidation_graphs_posted_total",
			Help: "Total number of validation graphs written to the graph store",
		}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "semstreams_shaclvalidation_active_runs",
			Help: "Number of validation runs in progress",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "semstreams_shaclvalidation_publish_failures_total",
			Help: "Total number of failed result or entity publishes",
		}),
	}

	registry.RegisterCounterVec(metricsService, "runs_total", m.runsTotal)
	registry.RegisterHistogramVec(metricsService, "run_duration_seconds", m.runDuration)
	registry.RegisterCounter(metricsService, "results_total", m.resultsTotal)
	registry.RegisterCounter(metricsService, "entities_published_total", m.entitiesTotal)
	registry.RegisterCounter(metricsService, "graphs_posted_total", m.graphsPosted)
	registry.RegisterGauge(metricsService, "active_runs", m.activeRuns)
	registry.RegisterCounter(metricsService, "publish_failures_total", m.publishFailures)

	return m
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

func (m *Metrics) runFinished(status string, d time.Duration, results int, posted bool) {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(d.Seconds())
	m.resultsTotal.Add(float64(results))
	if posted {
		m.graphsPosted.Inc()
	}
}

func (m *Metrics) entitiesPublished(n int) {
	if m == nil {
		return
	}
	m.entitiesTotal.Add(float64(n))
}

func (m *Metrics) publishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}
