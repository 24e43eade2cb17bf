package domain

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusPending TicketStatus = "PENDING"
	TicketStatusSuccess TicketStatus = "SUCCESS"
	// TicketStatusFailed is reported but never stored: a failed ticket is deleted.
	TicketStatusFailed TicketStatus = "FAILED"
)

const TicketCodePrefix = "TKT-"

type Ticket struct {
	ID                 uuid.UUID    `json:"id"`
	Code               string       `json:"code"`
	FlightID           int64        `json:"flight_id"`
	SeatID             int64        `json:"seat_id"`
	CustomerID         string       `json:"customer_id"`
	Price              int64        `json:"price"`
	Status             TicketStatus `json:"status"`
	PaymentToken       *string      `json:"payment_token,omitempty"`
	PaymentRedirectURL *string      `json:"payment_redirect_url,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

func (t Ticket) HasPaymentToken() bool {
	return t.PaymentToken != nil && *t.PaymentToken != ""
}

// Outcome is the only vocabulary ticket transitions are expressed in.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return string(TicketStatusSuccess)
	case OutcomeFailed:
		return string(TicketStatusFailed)
	default:
		return string(TicketStatusPending)
	}
}

// ParseOverrideOutcome accepts the statuses an administrator may force.
func ParseOverrideOutcome(s string) (Outcome, error) {
	switch TicketStatus(s) {
	case TicketStatusSuccess:
		return OutcomeSuccess, nil
	case TicketStatusFailed:
		return OutcomeFailed, nil
	}
	return OutcomePending, ErrInvalidStatus
}

// FinalizeResult describes what a finalize call did. Applied is false for
// idempotent no-ops. Ticket is the row as last seen (status FAILED when the
// call deleted it) and nil when no row existed.
type FinalizeResult struct {
	Outcome Outcome
	Ticket  *Ticket
	Applied bool
}

type PaymentSession struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}
