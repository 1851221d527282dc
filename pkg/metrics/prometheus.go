package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jakechorley/keyworker-allocation/pkg/core/allocator"
)

// Run outcomes used as the "outcome" label on the runs counter
const (
	OutcomeCompleted         = "completed"
	OutcomeCapacityExhausted = "capacity_exhausted"
	OutcomeFailed            = "failed"
)

// PrometheusCollector records auto-allocation metrics in a Prometheus registry
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	allocations prometheus.Counter
	runs        *prometheus.CounterVec
	allocated   *prometheus.CounterVec
}

// NewPrometheus creates a Prometheus-backed collector.
// A nil registerer means prometheus.DefaultRegisterer; an empty namespace means "keyworker".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "keyworker"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.allocations = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "auto_allocation",
			Name:      "allocations_total",
			Help:      "Total offenders allocated to a keyworker by auto-allocation.",
		})
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "auto_allocation",
			Name:      "runs_total",
			Help:      "Total auto-allocation runs by prison and outcome (completed, capacity_exhausted, failed).",
		}, []string{"prison", "outcome"})
		p.allocated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "auto_allocation",
			Name:      "prison_allocations_total",
			Help:      "Total offenders allocated by auto-allocation runs, by prison.",
		}, []string{"prison"})

		p.reg.MustRegister(p.allocations, p.runs, p.allocated)
	})
}

// IncrementAutoAllocationCounter counts a single confirmed allocation
func (p *PrometheusCollector) IncrementAutoAllocationCounter() {
	p.ensureRegistered()
	p.allocations.Inc()
}

// RecordRun records the result of one prison's auto-allocation run
func (p *PrometheusCollector) RecordRun(prisonID string, allocated int, err error) {
	p.ensureRegistered()
	p.runs.WithLabelValues(prisonID, Outcome(err)).Inc()
	p.allocated.WithLabelValues(prisonID).Add(float64(allocated))
}

// Outcome classifies a run error into a label value
func Outcome(err error) string {
	var exhausted *allocator.CapacityExhaustedError
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.As(err, &exhausted):
		return OutcomeCapacityExhausted
	default:
		return OutcomeFailed
	}
}
