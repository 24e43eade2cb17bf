package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification results.
const (
	ResultApplied          = "applied"
	ResultDuplicate        = "duplicate"
	ResultPending          = "pending"
	ResultInvalidSignature = "invalid_signature"
	ResultMalformed        = "malformed"
	ResultTicketNotFound   = "ticket_not_found"
	ResultInFlight         = "in_flight"
	ResultIntegrity        = "integrity_error"
	ResultError            = "error"
)

// Metrics methods are safe on a nil receiver so services can run without them.
type Metrics struct {
	ticketsCreated prometheus.Counter
	seatConflicts  prometheus.Counter
	gatewayErrors  prometheus.Counter
	notifications  *prometheus.CounterVec
	gatherer       prometheus.Gatherer
}

func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ticketsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "airticket",
			Name:      "tickets_created_total",
			Help:      "Pending tickets created.",
		}),
		seatConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "airticket",
			Name:      "seat_reservation_conflicts_total",
			Help:      "Reservations rejected because the seat was already booked.",
		}),
		gatewayErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "airticket",
			Name:      "payment_gateway_errors_total",
			Help:      "Failed create-transaction calls.",
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airticket",
			Name:      "payment_notifications_total",
			Help:      "Payment notifications by handling result.",
		}, []string{"result"}),
		gatherer: reg,
	}
}

func (m *Metrics) TicketCreated() {
	if m != nil {
		m.ticketsCreated.Inc()
	}
}

func (m *Metrics) SeatConflict() {
	if m != nil {
		m.seatConflicts.Inc()
	}
}

func (m *Metrics) GatewayError() {
	if m != nil {
		m.gatewayErrors.Inc()
	}
}

func (m *Metrics) Notification(result string) {
	if m != nil {
		m.notifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
