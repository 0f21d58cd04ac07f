// Package observability holds the Prometheus instruments and the port
// decorators that feed them.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stages label errors by where a turn failed.
const (
	StageEmbed    = "embed"
	StageSearch   = "search"
	StageGenerate = "generate"
	StageIngest   = "ingest"
)

// Metrics groups all Prometheus instruments used by the application.
// Instruments are registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Turns           prometheus.Counter
	Errors          *prometheus.CounterVec
	LLMLatency      prometheus.Histogram
	EmbedLatency    prometheus.Histogram
	SearchLatency   prometheus.Histogram
	IndexedSegments prometheus.Gauge
	SessionMessages prometheus.Gauge
}

var latencyBuckets = []float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// NewMetrics creates the instruments under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns answered successfully.",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by pipeline stage.",
		}, []string{"stage"}),
		LLMLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_latency_ms",
			Help:      "Language model call latency in milliseconds.",
			Buckets:   latencyBuckets,
		}),
		EmbedLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embed_latency_ms",
			Help:      "Embedding call latency in milliseconds.",
			Buckets:   latencyBuckets,
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_ms",
			Help:      "Vector search latency in milliseconds.",
			Buckets:   latencyBuckets,
		}),
		IndexedSegments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_segments",
			Help:      "Segments currently held by the vector store.",
		}),
		SessionMessages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_messages",
			Help:      "Messages retained by the conversation memory.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTurn records the outcome of one chat turn.
func (m *Metrics) ObserveTurn(err error, sessionMessages int) {
	if err == nil {
		m.Turns.Inc()
	}
	m.SessionMessages.Set(float64(sessionMessages))
}

func observeMillis(h prometheus.Histogram, start time.Time) {
	h.Observe(float64(time.Since(start).Microseconds()) / 1000)
}
