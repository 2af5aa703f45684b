package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters for the scheduling and job subsystems. All
// observe methods are nil-safe so wiring them is optional in tests.
type Metrics struct {
	bookingsTotal *prometheus.CounterVec
	jobsTotal     *prometheus.CounterVec
	scheduleFires *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms",
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Jobs processed by kind and outcome",
		}, []string{"kind", "outcome"}),
		scheduleFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms",
			Subsystem: "scheduler",
			Name:      "fires_total",
			Help:      "Scheduled task firings by schedule name",
		}, []string{"schedule"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.jobsTotal, m.scheduleFires)
	return m
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveJob(kind, outcome string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveScheduleFire(schedule string) {
	if m == nil {
		return
	}
	m.scheduleFires.WithLabelValues(schedule).Inc()
}
