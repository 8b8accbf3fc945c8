package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentNotification records every accepted webhook delivery. A transaction
// produces several deliveries over its lifecycle (pending, then settlement);
// one row exists per (transaction id, status, fraud status).
type PaymentNotification struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	OrderNumber       string              `gorm:"column:order_number;not null"`
	TransactionID     string              `gorm:"column:transaction_id;not null;uniqueIndex:ux_payment_notifications_delivery"`
	TransactionStatus string              `gorm:"column:transaction_status;not null;uniqueIndex:ux_payment_notifications_delivery"`
	FraudStatus       string              `gorm:"column:fraud_status;not null;default:'';uniqueIndex:ux_payment_notifications_delivery"`
	PaymentType       *string             `gorm:"column:payment_type"`
	GrossAmount       string              `gorm:"column:gross_amount;not null"`
	ResultingStatus   enums.PaymentStatus `gorm:"column:resulting_status;not null"`
	Outcome           string              `gorm:"column:outcome;not null"`
	ReceivedAt        time.Time           `gorm:"column:received_at;autoCreateTime"`
}
