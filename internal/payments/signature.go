package payments

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// Verifier authenticates a notification before any state is touched.
type Verifier interface {
	Verify(n Notification) bool
}

// SHA512Verifier checks signature_key = hex(sha512(order_id + status_code + gross_amount + server_key)).
type SHA512Verifier struct {
	serverKey string
}

func NewSHA512Verifier(serverKey string) (*SHA512Verifier, error) {
	if strings.TrimSpace(serverKey) == "" {
		return nil, errors.New("payment server key required")
	}
	return &SHA512Verifier{serverKey: serverKey}, nil
}

func (v *SHA512Verifier) Verify(n Notification) bool {
	expected := Sign(n.OrderID, n.StatusCode, n.GrossAmount, v.serverKey)
	given := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

// Sign computes the signature the gateway is expected to send.
func Sign(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}
