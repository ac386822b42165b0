package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for booking validation and status changes.
type SchedulingMetrics struct {
	validations    *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	lockContention prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "validations_total",
			Help:      "Candidate appointment validations by outcome",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "transitions_total",
			Help:      "Appointment status transitions by target state and outcome",
		}, []string{"to", "outcome"}),
		lockContention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "lock_contention_total",
			Help:      "Scheduling attempts rejected because the practitioner-day lock was held",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.validations, m.transitions, m.lockContention)
	return m
}

// ObserveValidation records "accepted" for an empty outcome.
func (m *SchedulingMetrics) ObserveValidation(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "accepted"
	}
	m.validations.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(to, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "applied"
	}
	m.transitions.WithLabelValues(to, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}
