package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/Domenick1991/airticket/internal/domain"
)

// Signature is sha512(order_id + status_code + gross_amount + server_key), hex encoded.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(orderID, statusCode, grossAmount, signature, serverKey string) bool {
	expected := Signature(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Verifier checks inbound notifications against the merchant server key.
type Verifier struct {
	serverKey string
}

func NewVerifier(serverKey string) *Verifier {
	return &Verifier{serverKey: serverKey}
}

func (v *Verifier) Verify(n Notification) error {
	if v.serverKey == "" {
		return fmt.Errorf("%w: server key is not configured", domain.ErrInvalidSignature)
	}
	if !VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey, v.serverKey) {
		return domain.ErrInvalidSignature
	}
	return nil
}
