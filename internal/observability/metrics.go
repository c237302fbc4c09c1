package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Requests        *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	AccessCacheHits prometheus.Counter
	AccessCacheMiss prometheus.Counter
	AuditFailures   prometheus.Counter
	TurnsAppended   prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_ms",
			Help:      "Outbound provider call latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 15000, 60000},
		}, []string{"provider"}),
		AccessCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_cache_hits_total",
			Help:      "Access record cache hits.",
		}),
		AccessCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_cache_misses_total",
			Help:      "Access record cache misses.",
		}),
		AuditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit lines that could not be delivered.",
		}),
		TurnsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_turns_appended_total",
			Help:      "Conversation turns written to the memory store.",
		}),
	}
}

func (m *Metrics) ObserveProviderLatency(provider string, d time.Duration) {
	m.ProviderLatency.WithLabelValues(provider).Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
