package payment

import "github.com/Domenick1991/airticket/internal/domain"

// Gateway transaction_status values.
const (
	StatusCapture    = "capture"
	StatusSettlement = "settlement"
	StatusPending    = "pending"
	StatusCancel     = "cancel"
	StatusDeny       = "deny"
	StatusExpire     = "expire"
)

// Gateway fraud_status values, sent with "capture".
const (
	FraudAccept    = "accept"
	FraudChallenge = "challenge"
	FraudDeny      = "deny"
)

// MapStatus translates a gateway report into a ticket outcome. Anything not
// explicitly successful or failed leaves the ticket pending.
func MapStatus(transactionStatus, fraudStatus string) domain.Outcome {
	switch transactionStatus {
	case StatusCapture:
		if fraudStatus == FraudAccept {
			return domain.OutcomeSuccess
		}
		return domain.OutcomePending
	case StatusSettlement:
		return domain.OutcomeSuccess
	case StatusCancel, StatusDeny, StatusExpire:
		return domain.OutcomeFailed
	default:
		return domain.OutcomePending
	}
}
