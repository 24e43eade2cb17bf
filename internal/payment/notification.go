package payment

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/Domenick1991/airticket/internal/domain"
)

// Notification is the asynchronous status report posted by the gateway.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	SignatureKey      string `json:"signature_key"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionID     string `json:"transaction_id,omitempty"`
	PaymentType       string `json:"payment_type,omitempty"`
	TransactionTime   string `json:"transaction_time,omitempty"`
}

// ParseNotification decodes and validates a webhook body. Every failure is
// reported as domain.ErrMalformedPayload.
func ParseNotification(body []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	required := []struct {
		name  string
		value string
	}{
		{"order_id", n.OrderID},
		{"transaction_status", n.TransactionStatus},
		{"signature_key", n.SignatureKey},
		{"status_code", n.StatusCode},
		{"gross_amount", n.GrossAmount},
	}
	for _, f := range required {
		if f.value == "" {
			return Notification{}, fmt.Errorf("%w: missing %s", domain.ErrMalformedPayload, f.name)
		}
	}

	switch n.FraudStatus {
	case "", FraudAccept, FraudChallenge, FraudDeny:
	default:
		return Notification{}, fmt.Errorf("%w: unknown fraud_status %q", domain.ErrMalformedPayload, n.FraudStatus)
	}

	if _, err := n.Amount(); err != nil {
		return Notification{}, fmt.Errorf("%w: gross_amount %q", domain.ErrMalformedPayload, n.GrossAmount)
	}
	return n, nil
}

// Amount parses gross_amount, which the gateway sends as e.g. "1250000.00".
// NaN and infinities are rejected.
func (n Notification) Amount() (float64, error) {
	amount, err := strconv.ParseFloat(n.GrossAmount, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("gross_amount %q is not a finite number", n.GrossAmount)
	}
	return amount, nil
}

func (n Notification) Outcome() domain.Outcome {
	return MapStatus(n.TransactionStatus, n.FraudStatus)
}
