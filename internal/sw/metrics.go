package sw

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "nova_sw"

// Route policies
const (
	policyAPI         = "network_first"
	policyStatic      = "cache_first"
	policyPassthrough = "passthrough"
)

// Outcomes of a routed request
const (
	outcomeNetwork  = "network"
	outcomeCacheHit = "cache_hit"
	outcomeFallback = "fallback"
	outcomeOffline  = "offline"
	outcomeFailed   = "failed"
)

// Metrics counts routing decisions of a Worker. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	stored   prometheus.Counter
	evicted  prometheus.Counter
}

// NewMetrics creates worker metrics on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests routed by the offline worker, by policy and outcome.",
		}, []string{"policy", "outcome"}),
		stored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_puts_total",
			Help:      "Responses written to the offline cache.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "caches_deleted_total",
			Help:      "Outdated caches deleted on activation.",
		}),
	}
	m.registry.MustRegister(m.requests, m.stored, m.evicted)
	return m
}

// Registry returns the registry holding the worker collectors
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) observe(policy, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(policy, outcome).Inc()
}

func (m *Metrics) cachePut() {
	if m == nil {
		return
	}
	m.stored.Inc()
}

func (m *Metrics) cacheDeleted() {
	if m == nil {
		return
	}
	m.evicted.Inc()
}
