package domain

import "errors"

var (
	ErrSeatUnavailable     = errors.New("seat is unavailable")
	ErrSeatNotFound        = errors.New("seat not found")
	ErrFlightNotFound      = errors.New("flight not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketNotPending    = errors.New("ticket is not pending")
	ErrDuplicateTicketCode = errors.New("duplicate ticket code")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrPaymentGateway      = errors.New("payment gateway error")
	ErrDataIntegrity       = errors.New("data integrity violation")
	ErrForbidden           = errors.New("operation is forbidden for user")
	ErrInvalidStatus       = errors.New("invalid status")
)
