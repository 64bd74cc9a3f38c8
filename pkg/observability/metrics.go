package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects lifecycle telemetry in a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	events      *prometheus.CounterVec
	nodes       *prometheus.GaugeVec
}

// NewMetrics creates the collectors under namespace (default "arbor").
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "arbor"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}
	m.transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "transitions_total",
			Help:      "Lifecycle state transitions by node kind",
		},
		[]string{"kind", "from", "to"},
	)
	m.events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "events_total",
			Help:      "Lifecycle events (created, mounterror, ...) by node kind",
		},
		[]string{"kind", "event"},
	)
	m.nodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "state",
			Help:      "Number of nodes currently in each lifecycle state",
		},
		[]string{"kind", "state"},
	)
	m.registry.MustRegister(m.transitions, m.events, m.nodes)
	return m
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(e.Node.Kind, e.From.String(), e.To.String()).Inc()
			// Undef is the resting state and is not tracked.
			if e.From != domain.StateUndef {
				m.nodes.WithLabelValues(e.Node.Kind, e.From.String()).Dec()
			}
			if e.To != domain.StateUndef {
				m.nodes.WithLabelValues(e.Node.Kind, e.To.String()).Inc()
			}
		},
		OnEvent: func(_ context.Context, e *domain.NodeEvent) {
			m.events.WithLabelValues(e.Node.Kind, string(e.Event)).Inc()
		},
	}
}
