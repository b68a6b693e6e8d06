package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module: lifecycle counts and
// the duration of the active-tenant check on the AI invocation path.
type Metrics struct {
	TenantTransitions   *prometheus.CounterVec
	CheckActiveDuration prometheus.Histogram
}

// New registers the tenant module collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TenantTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_tenant_transitions_total",
			Help: "Tenant lifecycle transitions (created, suspended, reactivated, deleted)",
		}, []string{"transition"}),
		CheckActiveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rgpd_tenant_check_active_duration_seconds",
			Help:    "Duration of the active-tenant check on the AI invocation path",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementTransition(transition string) {
	m.TenantTransitions.WithLabelValues(transition).Inc()
}

// ObserveCheckActive records the duration of a CheckActive call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCheckActive(start time.Time) {
	m.CheckActiveDuration.Observe(time.Since(start).Seconds())
}
