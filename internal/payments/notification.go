package payments

import "github.com/angelmondragon/storefront-backend/pkg/enums"

// Notification is a payment gateway status callback. OrderID carries the
// storefront order number.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
}

// Outcome describes what a delivery did to the order.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Result is acknowledged back to the gateway.
type Result struct {
	OrderNumber   string              `json:"orderNumber"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	Outcome       Outcome             `json:"outcome"`
}

// MapStatus converts a gateway transaction status into a payment status.
func MapStatus(transactionStatus, fraudStatus string) enums.PaymentStatus {
	switch transactionStatus {
	case "settlement":
		return enums.PaymentStatusPaid
	case "capture":
		if fraudStatus == "challenge" {
			return enums.PaymentStatusPending
		}
		return enums.PaymentStatusPaid
	case "deny", "cancel", "expire", "failure":
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusPending
	}
}
