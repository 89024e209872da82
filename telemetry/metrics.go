package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes counters for the selection and streaming pipeline.
// Router fallbacks are deliberately silent toward the user, so the
// counters here are the only place that failure mode is visible.
type Metrics struct {
	RouterCalls     prometheus.Counter
	RouterFallbacks prometheus.Counter
	RouterCacheHits prometheus.Counter
	BudgetErrors    prometheus.Counter
	StreamErrors    prometheus.Counter
	ActiveLawBytes  prometheus.Gauge
}

// New registers the service metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RouterCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "avokati_router_calls_total",
			Help: "Number of automatic-mode router invocations.",
		}),
		RouterFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "avokati_router_fallbacks_total",
			Help: "Router failures that degraded to the manual selection.",
		}),
		RouterCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "avokati_router_cache_hits_total",
			Help: "Router selections served from the in-process cache.",
		}),
		BudgetErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "avokati_stream_budget_errors_total",
			Help: "Streaming calls rejected for exceeding the upstream size limit.",
		}),
		StreamErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "avokati_stream_errors_total",
			Help: "Streaming calls that failed for any other reason.",
		}),
		ActiveLawBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "avokati_active_law_bytes",
			Help: "Combined size of active law documents in manual mode.",
		}),
	}
}

// NewNop returns metrics bound to a throwaway registry, for tests and
// callers that do not care about scraping.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
