package orders

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func orderCreatedEvent(order *models.Order) outbox.DomainEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			VariantInfo: item.VariantInfo,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    order.CreatedAt,
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerEmail: order.CustomerEmail,
			PaymentMethod: order.PaymentMethod,
			Subtotal:      order.Subtotal,
			ShippingCost:  order.ShippingCost,
			TotalAmount:   order.TotalAmount,
			TotalDisplay:  money.Format(order.TotalAmount),
			Items:         lines,
		},
	}
}

func stockDepletedEvent(target stockTarget, orderNumber string) outbox.DomainEvent {
	data := payloads.StockDepletedEvent{
		ProductID:   target.productID,
		ProductName: target.productName,
		OrderNumber: orderNumber,
	}
	if target.variant {
		id := target.id
		data.VariantID = &id
	}
	return outbox.DomainEvent{
		EventType:     enums.EventStockDepleted,
		AggregateType: enums.AggregateProduct,
		AggregateID:   target.productID,
		Data:          data,
	}
}

func statusChangedEvent(order *models.Order, from enums.OrderStatus, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          order.Status,
		},
	}
}

// PaymentChangedEvent builds the payment_status_changed event shared by refunds
// and gateway notifications.
func PaymentChangedEvent(order *models.Order, from, to enums.PaymentStatus, transactionID, paymentType string, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventPaymentStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.PaymentStatusChangedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			From:          from,
			To:            to,
			TransactionID: transactionID,
			PaymentType:   paymentType,
		},
	}
}

func orderDeletedEvent(order *models.Order, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderDeleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderDeletedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
		},
	}
}
