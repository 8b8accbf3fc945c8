package payloads

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderLine is the item snapshot carried on order events.
type OrderLine struct {
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	ProductName string     `json:"product_name"`
	VariantInfo *string    `json:"variant_info,omitempty"`
	Price       int64      `json:"price"`
	Quantity    int        `json:"quantity"`
	Subtotal    int64      `json:"subtotal"`
}

// OrderCreatedEvent is emitted in the same transaction that commits an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID   `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	CustomerEmail string      `json:"customer_email"`
	PaymentMethod string      `json:"payment_method"`
	Subtotal      int64       `json:"subtotal"`
	ShippingCost  int64       `json:"shipping_cost"`
	TotalAmount   int64       `json:"total_amount"`
	TotalDisplay  string      `json:"total_display"`
	Items         []OrderLine `json:"items"`
}

// OrderStatusChangedEvent records an admin fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// OrderDeletedEvent records removal of a pending order.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// PaymentStatusChangedEvent is emitted when a webhook or a refund moves the payment status.
type PaymentStatusChangedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	From          enums.PaymentStatus `json:"from"`
	To            enums.PaymentStatus `json:"to"`
	TransactionID string              `json:"transaction_id,omitempty"`
	PaymentType   string              `json:"payment_type,omitempty"`
}

// StockDepletedEvent fires when an order takes a product or variant to zero stock.
type StockDepletedEvent struct {
	ProductID   uuid.UUID  `json:"product_id"`
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	ProductName string     `json:"product_name"`
	OrderNumber string     `json:"order_number"`
}
