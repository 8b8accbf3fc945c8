package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// CustomerInfo identifies the buyer of a guest checkout.
type CustomerInfo struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,max=32"`
}

// PaymentMethodChoice carries the buyer's payment selection.
type PaymentMethodChoice struct {
	Method string `json:"method" validate:"required"`
}

// ItemInput is one submitted cart line. Price is what the client displayed and
// is only compared against the server price.
type ItemInput struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1,max=1000"`
	Price     *int64     `json:"price,omitempty" validate:"omitempty,min=0"`
}

// SubmitOrderInput is the checkout payload.
type SubmitOrderInput struct {
	Customer        CustomerInfo          `json:"customerInfo"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethodChoice   `json:"paymentMethod"`
	Items           []ItemInput           `json:"items" validate:"required,min=1,dive"`
	Notes           *string               `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// OrderConfirmation is returned once an order commits.
type OrderConfirmation struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	TotalAmount   int64               `json:"totalAmount"`
	PaymentMethod string              `json:"paymentMethod"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
}

// OrderItemDTO is the API view of an item snapshot.
type OrderItemDTO struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   *uuid.UUID `json:"productId,omitempty"`
	VariantID   *uuid.UUID `json:"variantId,omitempty"`
	ProductName string     `json:"productName"`
	VariantInfo *string    `json:"variantInfo,omitempty"`
	Price       int64      `json:"price"`
	Quantity    int        `json:"quantity"`
	Subtotal    int64      `json:"subtotal"`
}

// OrderDTO is the API view of an order and its items.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"orderNumber"`
	CustomerName    string                `json:"customerName"`
	CustomerEmail   string                `json:"customerEmail"`
	CustomerPhone   string                `json:"customerPhone"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	Subtotal        int64                 `json:"subtotal"`
	ShippingCost    int64                 `json:"shippingCost"`
	TotalAmount     int64                 `json:"totalAmount"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentStatus   enums.PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   string                `json:"paymentMethod"`
	Notes           *string               `json:"notes,omitempty"`
	Items           []OrderItemDTO        `json:"items"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// CustomerOrderList is one cursor page of a customer's orders, newest first.
type CustomerOrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// AdminOrderFilters narrows the back-office order listing.
type AdminOrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Query         string
}

// AdminOrderList is one page of the back-office order listing.
type AdminOrderList struct {
	Orders     []OrderDTO     `json:"orders"`
	Pagination types.PageMeta `json:"pagination"`
}

func NewOrderDTO(m models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			VariantInfo: item.VariantInfo,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}
	return OrderDTO{
		ID:              m.ID,
		OrderNumber:     m.OrderNumber,
		CustomerName:    m.CustomerName,
		CustomerEmail:   m.CustomerEmail,
		CustomerPhone:   m.CustomerPhone,
		ShippingAddress: m.ShippingAddress,
		Subtotal:        m.Subtotal,
		ShippingCost:    m.ShippingCost,
		TotalAmount:     m.TotalAmount,
		Status:          m.Status,
		PaymentStatus:   m.PaymentStatus,
		PaymentMethod:   m.PaymentMethod,
		Notes:           m.Notes,
		Items:           items,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
