package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cty_prefix"

// Metrics holds the Prometheus counters, histograms, and gauges for the table loader.
type Metrics struct {
	LoadsTotal    prometheus.Counter
	LoadErrors    prometheus.Counter
	LoadDuration  prometheus.Histogram
	LoaderRunning prometheus.Gauge

	// Snapshot shape, refreshed on every successful load.
	PatternKeys  prometheus.Gauge
	ExactKeys    prometheus.Gauge
	Countries    prometheus.Gauge
	LinesIgnored prometheus.Gauge

	// Kafka export.
	EntriesExported prometheus.Counter
	ExportErrors    prometheus.Counter
}

// NewMetrics creates and registers all loader metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.LoadsTotal,
		m.LoadErrors,
		m.LoadDuration,
		m.LoaderRunning,
		m.PatternKeys,
		m.ExactKeys,
		m.Countries,
		m.LinesIgnored,
		m.EntriesExported,
		m.ExportErrors,
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
		LoadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Total successful builds of the prefix tables.",
		}),
		LoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Total failed attempts to read the cty source.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete read-build-publish cycle.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		LoaderRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loader_running",
			Help:      "1 when the loader is active, 0 when shut down.",
		}),
		PatternKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pattern_keys",
			Help:      "Distinct keys in the current pattern table.",
		}),
		ExactKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exact_keys",
			Help:      "Distinct keys in the current exact-callsign table.",
		}),
		Countries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "countries",
			Help:      "Distinct country headers in the current snapshot.",
		}),
		LinesIgnored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lines_ignored",
			Help:      "Lines skipped as neither header nor continuation in the current snapshot.",
		}),
		EntriesExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_exported_total",
			Help:      "Total table entries written to the sink topic.",
		}),
		ExportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_errors_total",
			Help:      "Total failed export batches.",
		}),
	}
}
