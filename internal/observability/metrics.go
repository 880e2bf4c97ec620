package observability

import (
	"net/http"
	"time"

	"chatcart/internal/llm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each
// instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions      prometheus.Gauge
	Turns               *prometheus.CounterVec
	TurnLatency         prometheus.Histogram
	Generations         *prometheus.CounterVec
	GenerationLatency   *prometheus.HistogramVec
	CartAdds            *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled turns by intent and action.",
		}, []string{"intent", "action"}),
		TurnLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end turn latency in milliseconds.",
			Buckets:   []float64{1, 5, 20, 100, 500, 2000, 10000, 30000, 60000},
		}),
		Generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generative fallback calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GenerationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_ms",
			Help:      "Generative fallback latency in milliseconds.",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"provider"}),
		CartAdds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_adds_total",
			Help:      "Cart additions by source.",
		}, []string{"source"}),
		PersistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Memory store writes that failed during a turn.",
		}),
	}
}

// ObserveGeneration implements llm.Observer.
func (m *Metrics) ObserveGeneration(provider string, outcome llm.Outcome, took time.Duration) {
	m.Generations.WithLabelValues(provider, string(outcome)).Inc()
	m.GenerationLatency.WithLabelValues(provider).Observe(float64(took.Milliseconds()))
}

func (m *Metrics) ObserveTurn(intent, action string, took time.Duration) {
	m.Turns.WithLabelValues(intent, action).Inc()
	m.TurnLatency.Observe(float64(took.Milliseconds()))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
