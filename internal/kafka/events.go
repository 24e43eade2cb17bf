package kafka

import (
	"time"

	"github.com/Domenick1991/airticket/internal/domain"
)

const (
	EventTicketCreated = "ticket_created"
	EventTicketPaid    = "ticket_paid"
	EventTicketFailed  = "ticket_failed"
)

type TicketEvent struct {
	Type       string    `json:"type"`
	TicketID   string    `json:"ticket_id"`
	Code       string    `json:"code"`
	FlightID   int64     `json:"flight_id"`
	SeatID     int64     `json:"seat_id"`
	CustomerID string    `json:"customer_id"`
	Price      int64     `json:"price"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewTicketEvent(eventType string, t *domain.Ticket) TicketEvent {
	return TicketEvent{
		Type:       eventType,
		TicketID:   t.ID.String(),
		Code:       t.Code,
		FlightID:   t.FlightID,
		SeatID:     t.SeatID,
		CustomerID: t.CustomerID,
		Price:      t.Price,
		Status:     string(t.Status),
		OccurredAt: time.Now().UTC(),
	}
}
