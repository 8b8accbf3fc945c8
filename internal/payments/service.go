package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"gorm.io/gorm"
)

const (
	guardConsumer = "payment-notifications"

	deliveryConstraint   = "ux_payment_notifications_delivery"
	sqliteDeliveryColumn = "payment_notifications.transaction_id"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// deliveryGuard short-circuits concurrent redeliveries before the database path.
type deliveryGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, id string) (bool, error)
	Delete(ctx context.Context, consumer, id string) error
}

type Service interface {
	HandleNotification(ctx context.Context, n Notification) (*Result, error)
}

type ServiceParams struct {
	Repo       *Repository
	OrdersRepo *orders.Repository
	Tx         txRunner
	Verifier   Verifier
	Outbox     outbox.Emitter
	Guard      deliveryGuard
	Metrics    *metrics.PaymentMetrics
	Logger     *logger.Logger
}

type service struct {
	repo       *Repository
	ordersRepo *orders.Repository
	tx         txRunner
	verifier   Verifier
	outbox     outbox.Emitter
	guard      deliveryGuard
	metrics    *metrics.PaymentMetrics
	logg       *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	}
	if p.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if p.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier required")
	}
	if p.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:       p.Repo,
		ordersRepo: p.OrdersRepo,
		tx:         p.Tx,
		verifier:   p.Verifier,
		outbox:     p.Outbox,
		guard:      p.Guard,
		metrics:    p.Metrics,
		logg:       p.Logger,
	}, nil
}

var errDuplicateDelivery = errors.New("duplicate payment notification")

// HandleNotification verifies, deduplicates and applies one gateway callback.
func (s *service) HandleNotification(ctx context.Context, n Notification) (*Result, error) {
	n = normalize(n)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_number":       n.OrderID,
		"transaction_id":     n.TransactionID,
		"transaction_status": n.TransactionStatus,
	})

	if !s.verifier.Verify(n) {
		s.metrics.IncNotification("signature_invalid")
		s.logg.Warn(s.logg.WithField(ctx, "security_event", true), "payment.signature_invalid")
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "invalid notification signature")
	}
	if err := requireFields(n); err != nil {
		s.metrics.IncNotification("invalid")
		return nil, err
	}

	if s.guard != nil {
		seen, err := s.guard.CheckAndMarkProcessed(ctx, guardConsumer, deliveryKey(n))
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment.guard_unavailable")
		} else if seen {
			return s.duplicate(ctx, n.OrderID)
		}
	}

	result, err := s.apply(ctx, n)
	if errors.Is(err, errDuplicateDelivery) {
		return s.duplicate(ctx, n.OrderID)
	}
	if err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, guardConsumer, deliveryKey(n)); delErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", delErr.Error()), "payment.guard_release_failed")
			}
		}
		s.metrics.IncNotification(failureOutcome(err))
		return nil, err
	}

	s.metrics.IncNotification(string(result.Outcome))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_status": result.PaymentStatus,
		"outcome":        result.Outcome,
	}), "payment.notification_handled")
	return result, nil
}

func (s *service) apply(ctx context.Context, n Notification) (*Result, error) {
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		ledger := s.repo.WithTx(tx)

		order, err := ordersRepo.FindByNumber(ctx, n.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
					WithDetails(map[string]any{"orderNumber": n.OrderID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		amount, err := money.ParseMinor(n.GrossAmount)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "gross_amount is not a valid amount").
				WithDetails(map[string]any{"grossAmount": n.GrossAmount})
		}
		if amount != order.TotalAmount {
			return pkgerrors.New(pkgerrors.CodeValidation, "gross_amount does not match the order total").
				WithDetails(map[string]any{"grossAmount": n.GrossAmount, "expected": money.Format(order.TotalAmount)})
		}

		existing, err := ledger.FindDelivery(ctx, n.TransactionID, n.TransactionStatus, n.FraudStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment notification")
		}
		if existing != nil {
			return errDuplicateDelivery
		}

		from := order.PaymentStatus
		target := MapStatus(n.TransactionStatus, n.FraudStatus)
		outcome := OutcomeProcessed
		if target != from && (from.IsTerminal() || target == enums.PaymentStatusRefunded) {
			outcome = OutcomeIgnored
		}

		record := &models.PaymentNotification{
			OrderID:           order.ID,
			OrderNumber:       order.OrderNumber,
			TransactionID:     n.TransactionID,
			TransactionStatus: n.TransactionStatus,
			FraudStatus:       n.FraudStatus,
			GrossAmount:       n.GrossAmount,
			ResultingStatus:   from,
			Outcome:           string(outcome),
			ReceivedAt:        time.Now().UTC(),
		}
		if n.PaymentType != "" {
			paymentType := n.PaymentType
			record.PaymentType = &paymentType
		}
		if outcome == OutcomeProcessed {
			record.ResultingStatus = target
		}
		if err := ledger.Insert(ctx, record); err != nil {
			if isDuplicateDelivery(err) {
				return errDuplicateDelivery
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment notification")
		}

		result = &Result{OrderNumber: order.OrderNumber, PaymentStatus: from, Outcome: outcome}
		if outcome != OutcomeProcessed || target == from {
			return nil
		}

		method := appendPaymentType(order.PaymentMethod, n.PaymentType)
		moved, err := ordersRepo.TransitionPaymentStatus(ctx, order.ID, from, target, &method)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status changed concurrently")
		}
		order.PaymentStatus = target
		order.PaymentMethod = method

		event := orders.PaymentChangedEvent(order, from, target, n.TransactionID, n.PaymentType, nil)
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment_status_changed")
		}
		result.PaymentStatus = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// deliveryKey identifies one notification of a transaction. The gateway
// reuses the transaction id across its lifecycle, so the status (and the
// fraud verdict for captures) is part of the identity.
func deliveryKey(n Notification) string {
	key := n.TransactionID + ":" + n.TransactionStatus
	if n.FraudStatus != "" {
		key += ":" + n.FraudStatus
	}
	return key
}

func isDuplicateDelivery(err error) bool {
	return db.IsUniqueViolation(err, deliveryConstraint) || db.IsUniqueViolation(err, sqliteDeliveryColumn)
}

// duplicate acknowledges a redelivery with the order's current payment status.
func (s *service) duplicate(ctx context.Context, orderNumber string) (*Result, error) {
	s.metrics.IncNotification(string(OutcomeDuplicate))
	s.logg.Info(ctx, "payment.notification_duplicate")

	order, err := s.ordersRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &Result{OrderNumber: order.OrderNumber, PaymentStatus: order.PaymentStatus, Outcome: OutcomeDuplicate}, nil
}

// appendPaymentType labels the method with the gateway channel once,
// e.g. "BANK_TRANSFER (bank_transfer)".
func appendPaymentType(method, paymentType string) string {
	if paymentType == "" || strings.Contains(method, "(") {
		return method
	}
	return fmt.Sprintf("%s (%s)", method, paymentType)
}

func normalize(n Notification) Notification {
	n.OrderID = strings.TrimSpace(n.OrderID)
	n.TransactionID = strings.TrimSpace(n.TransactionID)
	n.TransactionStatus = strings.ToLower(strings.TrimSpace(n.TransactionStatus))
	n.FraudStatus = strings.ToLower(strings.TrimSpace(n.FraudStatus))
	n.PaymentType = strings.TrimSpace(n.PaymentType)
	return n
}

func requireFields(n Notification) error {
	missing := map[string]string{}
	if n.OrderID == "" {
		missing["order_id"] = "is required"
	}
	if n.TransactionID == "" {
		missing["transaction_id"] = "is required"
	}
	if n.TransactionStatus == "" {
		missing["transaction_status"] = "is required"
	}
	if n.GrossAmount == "" {
		missing["gross_amount"] = "is required"
	}
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "notification is incomplete").WithDetails(missing)
}

func failureOutcome(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return "order_not_found"
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return "invalid"
	}
	return "error"
}
