// Package metrics exposes the scheduler's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	ops       *prometheus.CounterVec
	slotCache *prometheus.CounterVec
	retries   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seating_operations_total",
			Help: "Store operations by name and outcome.",
		}, []string{"op", "outcome"}),
		slotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seating_slot_cache_total",
			Help: "Slot resolution cache lookups by result.",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seating_tx_retries_total",
			Help: "Transactions retried after a serialization failure.",
		}),
	}
	m.registry.MustRegister(
		m.ops,
		m.slotCache,
		m.retries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOp counts one store operation. outcome is "ok" or an error kind.
func (m *Metrics) ObserveOp(op, outcome string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, outcome).Inc()
}

// SlotCache counts a slot resolution lookup.
func (m *Metrics) SlotCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.slotCache.WithLabelValues(result).Inc()
}

func (m *Metrics) TxRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
