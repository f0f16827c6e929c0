// Package metrics exposes Prometheus metrics for the custody vertical.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custody Prometheus metrics.
type Metrics struct {
	TransitionsTotal *prometheus.CounterVec
	ReleasedTotal    prometheus.Counter
	RefundedTotal    prometheus.Counter
	OpenContainers   prometheus.Gauge
}

// New creates and registers all custody metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry so fixtures do not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_transitions_total",
			Help: "Custody transitions attempted, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ReleasedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodia_released_quantity_total",
			Help: "Total quantity disbursed toward destinations.",
		}),
		RefundedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodia_refunded_quantity_total",
			Help: "Total quantity returned to originators.",
		}),
		OpenContainers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "custodia_open_containers",
			Help: "Containers currently in a non-terminal status.",
		}),
	}
}

// ObserveTransition records one attempted transition.
func (m *Metrics) ObserveTransition(operation, outcome string) {
	m.TransitionsTotal.WithLabelValues(operation, outcome).Inc()
}
