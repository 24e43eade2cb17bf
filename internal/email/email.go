package email

import (
	"context"

	"github.com/Domenick1991/airticket/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender delivers customer notifications. Delivery is a structured log line
// until an SMTP relay is configured.
type Sender struct {
	logger *logrus.Logger
}

func NewSender(logger *logrus.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.TicketEvent) error {
	subject, ok := subjectFor(event.Type)
	if !ok {
		return nil
	}
	s.logger.WithFields(logrus.Fields{
		"customer_id": event.CustomerID,
		"ticket_code": event.Code,
		"flight_id":   event.FlightID,
		"seat_id":     event.SeatID,
		"subject":     subject,
	}).Info("send email")
	return nil
}

func subjectFor(eventType string) (string, bool) {
	switch eventType {
	case kafka.EventTicketPaid:
		return "Your e-ticket is confirmed", true
	case kafka.EventTicketFailed:
		return "Your booking was cancelled", true
	}
	return "", false
}
