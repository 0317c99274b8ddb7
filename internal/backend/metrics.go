package backend

import (
	"time"

	"github.com/jo-hoe/imgcompressor/internal/backend/compression"
	"github.com/jo-hoe/imgcompressor/internal/backend/imagecodec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "imgcompressor"

// compressionMetrics implements compression.Recorder on top of Prometheus collectors
type compressionMetrics struct {
	compressions *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	bytesSaved   prometheus.Counter
}

func newMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func newCompressionMetrics(registerer prometheus.Registerer) *compressionMetrics {
	m := &compressionMetrics{
		compressions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "compressions_total",
				Help:      "Number of compression requests by target format and outcome",
			},
			[]string{"format", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "compression_duration_seconds",
				Help:      "Time spent in the compression pipeline",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"format"},
		),
		bytesSaved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "bytes_saved_total",
				Help:      "Bytes saved by returning compressed images instead of the uploads",
			},
		),
	}
	registerer.MustRegister(m.compressions, m.duration, m.bytesSaved)
	return m
}

func (m *compressionMetrics) Observe(format imagecodec.Format, outcome compression.Outcome, originalSize int64, outputSize int, elapsed time.Duration) {
	m.compressions.WithLabelValues(format.String(), string(outcome)).Inc()
	m.duration.WithLabelValues(format.String()).Observe(elapsed.Seconds())
	if outcome == compression.OutcomeCompressed && int64(outputSize) < originalSize {
		m.bytesSaved.Add(float64(originalSize - int64(outputSize)))
	}
}
