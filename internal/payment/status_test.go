package payment

import (
	"testing"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapStatus(t *testing.T) {
	testCases := []struct {
		transactionStatus string
		fraudStatus       string
		want              domain.Outcome
	}{
		{StatusCapture, FraudAccept, domain.OutcomeSuccess},
		{StatusCapture, FraudChallenge, domain.OutcomePending},
		{StatusCapture, FraudDeny, domain.OutcomePending},
		{StatusCapture, "", domain.OutcomePending},
		{StatusSettlement, "", domain.OutcomeSuccess},
		{StatusSettlement, FraudAccept, domain.OutcomeSuccess},
		{StatusPending, "", domain.OutcomePending},
		{StatusCancel, "", domain.OutcomeFailed},
		{StatusDeny, "", domain.OutcomeFailed},
		{StatusExpire, "", domain.OutcomeFailed},
		{"refund", "", domain.OutcomePending},
		{"", "", domain.OutcomePending},
	}

	for _, tc := range testCases {
		t.Run(tc.transactionStatus+"/"+tc.fraudStatus, func(t *testing.T) {
			assert.Equal(t, tc.want, MapStatus(tc.transactionStatus, tc.fraudStatus))
		})
	}
}
