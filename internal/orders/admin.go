package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *service) ListOrders(ctx context.Context, filters AdminOrderFilters, page pagination.Page) (*AdminOrderList, error) {
	page = page.Normalize()
	filters.Query = strings.TrimSpace(filters.Query)
	rows, total, err := s.repo.ListAdmin(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := &AdminOrderList{
		Orders:     make([]OrderDTO, 0, len(rows)),
		Pagination: types.NewPageMeta(page.Number, page.Limit, total),
	}
	for _, row := range rows {
		out.Orders = append(out.Orders, NewOrderDTO(row))
	}
	return out, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

// UpdateStatus applies one fulfillment transition. Cancelling does not restock.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus, actor *outbox.ActorRef) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, fieldError("status", "is not a valid order status")
	}

	var dto OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		from := order.Status
		if !from.CanTransitionTo(next) {
			return stateConflict(fmt.Sprintf("cannot move order from %s to %s", from, next), from, next)
		}
		moved, err := repo.TransitionStatus(ctx, id, from, next)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return stateConflict("order status changed concurrently", from, next)
		}
		order.Status = next
		if err := s.outbox.Emit(ctx, tx, statusChangedEvent(order, from, actor)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_status_changed")
		}
		dto = NewOrderDTO(*order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_number": dto.OrderNumber,
		"status":       dto.Status,
	}), "order.status_updated")
	return &dto, nil
}

// RefundPayment marks a paid order as refunded. This is the only path to REFUNDED.
func (s *service) RefundPayment(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*OrderDTO, error) {
	var dto OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be refunded").
				WithDetails(map[string]any{"paymentStatus": order.PaymentStatus})
		}
		moved, err := repo.TransitionPaymentStatus(ctx, id, enums.PaymentStatusPaid, enums.PaymentStatusRefunded, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund payment")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status changed concurrently")
		}
		order.PaymentStatus = enums.PaymentStatusRefunded
		event := PaymentChangedEvent(order, enums.PaymentStatusPaid, enums.PaymentStatusRefunded, "", "", actor)
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment_status_changed")
		}
		dto = NewOrderDTO(*order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, dto.OrderNumber), "order.payment_refunded")
	return &dto, nil
}

// Delete removes an order while it is still PENDING.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error {
	var orderNumber string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if !order.Status.IsDeletable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be deleted").
				WithDetails(map[string]any{"status": order.Status})
		}
		deleted, err := repo.DeleteIfStatus(ctx, id, enums.OrderStatusPending)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		orderNumber = order.OrderNumber
		if err := s.outbox.Emit(ctx, tx, orderDeletedEvent(order, actor)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_deleted")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, orderNumber), "order.deleted")
	return nil
}

func stateConflict(msg string, from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
		WithDetails(map[string]any{"from": from, "to": to})
}
