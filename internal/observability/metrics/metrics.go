package metrics

import "github.com/prometheus/client_golang/prometheus"

// InteractionMetrics exposes counters for booking page interactions.
type InteractionMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	toastsTotal        *prometheus.CounterVec
	countdownStarts    prometheus.Counter
	activeSessions     prometheus.Gauge
	apiLatency         *prometheus.HistogramVec
}

func NewInteractionMetrics(reg prometheus.Registerer) *InteractionMetrics {
	m := &InteractionMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservas",
			Subsystem: "page",
			Name:      "bookings_total",
			Help:      "Slot booking attempts by outcome",
		}, []string{"outcome"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservas",
			Subsystem: "page",
			Name:      "cancellations_total",
			Help:      "Cancellation confirmations by outcome",
		}, []string{"outcome"}),
		toastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservas",
			Subsystem: "page",
			Name:      "toasts_total",
			Help:      "Notifications shown by kind",
		}, []string{"kind"}),
		countdownStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reservas",
			Subsystem: "page",
			Name:      "countdown_starts_total",
			Help:      "Countdowns started from closest slot searches",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reservas",
			Subsystem: "page",
			Name:      "active_sessions",
			Help:      "Connected page sessions",
		}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reservas",
			Subsystem: "bookingapi",
			Name:      "request_seconds",
			Help:      "Latency of booking server calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationsTotal, m.toastsTotal, m.countdownStarts, m.activeSessions, m.apiLatency)
	return m
}

// Outcome labels shared by bookings and cancellations.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_error"
	OutcomeInvalid   = "invalid"
)

func (m *InteractionMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *InteractionMetrics) ObserveCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(outcome).Inc()
}

func (m *InteractionMetrics) ObserveToast(kind string) {
	if m == nil {
		return
	}
	m.toastsTotal.WithLabelValues(kind).Inc()
}

func (m *InteractionMetrics) ObserveCountdownStart() {
	if m == nil {
		return
	}
	m.countdownStarts.Inc()
}

func (m *InteractionMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *InteractionMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *InteractionMetrics) ObserveAPILatency(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.apiLatency.WithLabelValues(endpoint).Observe(seconds)
}
