package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "noise_trust"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Prediction metrics.
	Predictions        *prometheus.CounterVec // labels: tier
	PredictionDuration prometheus.Histogram
	PredictionBatch    prometheus.Histogram
	SourceBreakerOpen  prometheus.Gauge

	// Ingest pipeline metrics.
	MeasurementsConsumed prometheus.Counter
	MeasurementsStored   prometheus.Counter
	IngestErrors         prometheus.Counter
	PipelineRunning      prometheus.Gauge
	BatchSize            prometheus.Histogram
	BatchDuration        prometheus.Histogram

	// Snapshot publishing.
	SnapshotsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Predictions,
		m.PredictionDuration,
		m.PredictionBatch,
		m.SourceBreakerOpen,
		m.MeasurementsConsumed,
		m.MeasurementsStored,
		m.IngestErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchDuration,
		m.SnapshotsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Noise predictions by trust tier.",
		}, []string{"tier"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Duration of a single-location prediction including the measurement read.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		PredictionBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_batch_size",
			Help:      "Number of locations per batch prediction.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		SourceBreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_breaker_open",
			Help:      "1 while the measurement source circuit breaker is open.",
		}),
		MeasurementsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_consumed_total",
			Help:      "Total measurement messages read from ingest transports.",
		}),
		MeasurementsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_stored_total",
			Help:      "Total measurements appended to the store.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      "Total measurement messages rejected during parsing or validation.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the ingest pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_size",
			Help:      "Number of messages per extracted ingest batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_duration_seconds",
			Help:      "Time to parse and store one ingest batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Total prediction snapshots written to the sink topic.",
		}),
	}
}
