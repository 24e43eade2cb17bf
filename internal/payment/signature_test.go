package payment

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/stretchr/testify/assert"
)

const serverKey = "SB-Mid-server-test"

func TestSignature_MatchesSha512(t *testing.T) {
	sum := sha512.Sum512([]byte("TKT-abc" + "200" + "1250000.00" + serverKey))
	assert.Equal(t, hex.EncodeToString(sum[:]), Signature("TKT-abc", "200", "1250000.00", serverKey))
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	orderID, statusCode, gross := "TKT-abc", "200", "1250000.00"
	sig := Signature(orderID, statusCode, gross, serverKey)

	assert.True(t, VerifySignature(orderID, statusCode, gross, sig, serverKey))

	mutate := func(s string) string {
		b := []byte(s)
		if b[0] == 'x' {
			b[0] = 'y'
		} else {
			b[0] = 'x'
		}
		return string(b)
	}

	testCases := []struct {
		name                                  string
		orderID, statusCode, gross, sig, key string
	}{
		{"order id", mutate(orderID), statusCode, gross, sig, serverKey},
		{"status code", orderID, mutate(statusCode), gross, sig, serverKey},
		{"gross amount", orderID, statusCode, mutate(gross), sig, serverKey},
		{"server key", orderID, statusCode, gross, sig, mutate(serverKey)},
		{"signature", orderID, statusCode, gross, mutate(sig), serverKey},
		{"uppercase signature", orderID, statusCode, gross, "A" + sig[1:], serverKey},
		{"empty signature", orderID, statusCode, gross, "", serverKey},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, VerifySignature(tc.orderID, tc.statusCode, tc.gross, tc.sig, tc.key))
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	n := Notification{OrderID: "TKT-abc", StatusCode: "200", GrossAmount: "1000.00"}
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)

	assert.NoError(t, NewVerifier(serverKey).Verify(n))
	assert.ErrorIs(t, NewVerifier("other-key").Verify(n), domain.ErrInvalidSignature)
	assert.ErrorIs(t, NewVerifier("").Verify(n), domain.ErrInvalidSignature)
}
