package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the committed purchase. Totals are fixed at creation.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string                `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName    string                `gorm:"column:customer_name;not null"`
	CustomerEmail   string                `gorm:"column:customer_email;not null"`
	CustomerPhone   string                `gorm:"column:customer_phone;not null"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	Subtotal        int64                 `gorm:"column:subtotal;not null"`
	ShippingCost    int64                 `gorm:"column:shipping_cost;not null"`
	TotalAmount     int64                 `gorm:"column:total_amount;not null"`
	Status          enums.OrderStatus     `gorm:"column:status;not null"`
	PaymentStatus   enums.PaymentStatus   `gorm:"column:payment_status;not null"`
	PaymentMethod   string                `gorm:"column:payment_method;not null"`
	Notes           *string               `gorm:"column:notes"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
