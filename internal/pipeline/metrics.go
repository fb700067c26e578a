package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	encodeAttempts prometheus.Counter
	outputBytes    prometheus.Histogram
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thumbflow_runs_total",
			Help: "Total thumbnail pipeline runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thumbflow_run_duration_seconds",
			Help:    "Duration of a thumbnail pipeline run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		encodeAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thumbflow_encode_attempts_total",
			Help: "Total size-constrained encode attempts.",
		}),
		outputBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "thumbflow_output_bytes",
			Help:    "Size of written thumbnails in bytes.",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.runsTotal,
			m.runDuration,
			m.encodeAttempts,
			m.outputBytes,
		)
	}
	return m
}

func (m *Metrics) observeAttempt() {
	if m == nil {
		return
	}
	m.encodeAttempts.Inc()
}

func (m *Metrics) observeRun(status string, seconds float64, outputBytes int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(seconds)
	if outputBytes > 0 {
		m.outputBytes.Observe(float64(outputBytes))
	}
}
