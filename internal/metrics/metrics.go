// Package metrics exposes Prometheus counters for switch requests and
// observed activations on a private registry.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	SwitchRequests      *prometheus.CounterVec
	ActivationFailures  *prometheus.CounterVec
	ActivationsObserved prometheus.Counter
	StoreErrors         prometheus.Counter

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON status endpoint
type Snapshot struct {
	SwitchRequests      int64            `json:"switch_requests"`
	SwitchesByReason    map[string]int64 `json:"switches_by_reason"`
	ActivationFailures  int64            `json:"activation_failures"`
	ActivationsObserved int64            `json:"activations_observed"`
}

// New creates a metrics collector with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SwitchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lastapp_switch_requests_total",
				Help: "Total number of switch requests by verdict reason",
			},
			[]string{"reason"},
		),
		ActivationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lastapp_activation_failures_total",
				Help: "Total number of failed activation requests",
			},
			[]string{"protocol"},
		),
		ActivationsObserved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lastapp_activations_observed_total",
				Help: "Total number of observed foreground activations",
			},
		),
		StoreErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lastapp_store_errors_total",
				Help: "Total number of failed writes to the local database",
			},
		),
		snapshot: Snapshot{SwitchesByReason: make(map[string]int64)},
	}

	m.registry.MustRegister(
		m.SwitchRequests,
		m.ActivationFailures,
		m.ActivationsObserved,
		m.StoreErrors,
		prometheus.NewGoCollector(),
	)

	return m
}

// RecordSwitch counts one switch request with its verdict reason
func (m *Metrics) RecordSwitch(reason string) {
	m.SwitchRequests.WithLabelValues(reason).Inc()

	m.mu.Lock()
	m.snapshot.SwitchRequests++
	m.snapshot.SwitchesByReason[reason]++
	m.mu.Unlock()
}

// RecordActivationFailure counts an activation the host refused or could not route
func (m *Metrics) RecordActivationFailure(protocol string) {
	m.ActivationFailures.WithLabelValues(protocol).Inc()

	m.mu.Lock()
	m.snapshot.ActivationFailures++
	m.mu.Unlock()
}

// RecordActivation counts an observed foreground activation
func (m *Metrics) RecordActivation() {
	m.ActivationsObserved.Inc()

	m.mu.Lock()
	m.snapshot.ActivationsObserved++
	m.mu.Unlock()
}

// RecordStoreError counts a failed database write
func (m *Metrics) RecordStoreError() {
	m.StoreErrors.Inc()
}

// Snapshot returns a copy of the current values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.snapshot
	out.SwitchesByReason = make(map[string]int64, len(m.snapshot.SwitchesByReason))
	for k, v := range m.snapshot.SwitchesByReason {
		out.SwitchesByReason[k] = v
	}
	return out
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
