package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var notesPolicy = bluemonday.StrictPolicy()

// Service is the order pipeline: checkout, lookups and back-office operations.
type Service interface {
	SubmitOrder(ctx context.Context, input SubmitOrderInput) (*OrderConfirmation, error)
	GetByNumber(ctx context.Context, orderNumber string) (*OrderDTO, error)
	ListByEmail(ctx context.Context, email string, params pagination.Params) (*CustomerOrderList, error)

	ListOrders(ctx context.Context, filters AdminOrderFilters, page pagination.Page) (*AdminOrderList, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus, actor *outbox.ActorRef) (*OrderDTO, error)
	RefundPayment(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*OrderDTO, error)
	Delete(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
}

// ServiceParams bundles the collaborators of the order pipeline.
type ServiceParams struct {
	Repo        *Repository
	CatalogRepo *catalog.Repository
	Tx          txRunner
	Outbox      outbox.Emitter
	Numbers     NumberGenerator
	Shipping    cart.ShippingPolicy
	Shop        config.ShopConfig
	Metrics     *metrics.OrderMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        *Repository
	catalogRepo *catalog.Repository
	tx          txRunner
	outbox      outbox.Emitter
	numbers     NumberGenerator
	shipping    cart.ShippingPolicy
	shop        config.ShopConfig
	metrics     *metrics.OrderMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the order pipeline.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.CatalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Numbers == nil {
		return nil, fmt.Errorf("order number generator required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Shop.OrderNumberAttempts <= 0 {
		p.Shop.OrderNumberAttempts = 1
	}
	if p.Shop.MaxLineQuantity <= 0 {
		p.Shop.MaxLineQuantity = 1000
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &service{
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		tx:          p.Tx,
		outbox:      p.Outbox,
		numbers:     p.Numbers,
		shipping:    p.Shipping,
		shop:        p.Shop,
		metrics:     p.Metrics,
		logg:        p.Logger,
		now:         p.Now,
	}, nil
}

// pricedLine is a merged submission line re-priced from the catalog.
type pricedLine struct {
	productID   uuid.UUID
	variantID   *uuid.UUID
	quantity    int
	clientPrice *int64

	product  models.Product
	variant  *models.ProductVariant
	unit     int64
	subtotal int64
}

// stockTarget is one counter to decrement.
type stockTarget struct {
	variant     bool
	id          uuid.UUID
	productID   uuid.UUID
	productName string
	quantity    int
}

func (s *service) SubmitOrder(ctx context.Context, input SubmitOrderInput) (*OrderConfirmation, error) {
	started := time.Now()
	confirmation, err := s.submit(ctx, input)
	s.metrics.ObserveSubmission(submissionOutcome(err), time.Since(started))
	return confirmation, err
}

func (s *service) submit(ctx context.Context, input SubmitOrderInput) (*OrderConfirmation, error) {
	method, lines, err := s.prepare(input)
	if err != nil {
		return nil, err
	}

	attempts := s.shop.OrderNumberAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		now := s.now().UTC()
		number, err := s.generatorFor(attempt, attempts).Next(ctx, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order number")
		}

		confirmation, err := s.commit(ctx, number, now, method, input, lines)
		if err == nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"order_number": confirmation.OrderNumber,
				"order_id":     confirmation.OrderID.String(),
				"total_amount": confirmation.TotalAmount,
				"attempt":      attempt,
			}), "order.submitted")
			return confirmation, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeDuplicateOrderNumber) {
			return nil, err
		}
		s.metrics.IncNumberRetry()
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_number": number, "attempt": attempt}), "order.number_collision")
	}

	return nil, pkgerrors.New(pkgerrors.CodeDuplicateOrderNumber, "could not allocate a unique order number").
		WithDetails(map[string]any{"attempts": attempts})
}

// generatorFor swaps in a random suffix for the final attempt.
func (s *service) generatorFor(attempt, attempts int) NumberGenerator {
	if attempts > 1 && attempt == attempts {
		if _, random := s.numbers.(ULIDGenerator); !random {
			return ULIDGenerator{}
		}
	}
	return s.numbers
}

// prepare runs structural validation and merges duplicate lines.
func (s *service) prepare(input SubmitOrderInput) (enums.PaymentMethod, []pricedLine, error) {
	if err := validateSubmission(input); err != nil {
		return "", nil, err
	}
	method, err := enums.ParsePaymentMethod(strings.ToUpper(strings.TrimSpace(input.PaymentMethod.Method)))
	if err != nil {
		return "", nil, fieldError("paymentMethod.method", "is not a supported payment method")
	}

	limit := s.shop.MaxLineQuantity
	tooMany := func(i int) error {
		return fieldError(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("must be at most %d", limit))
	}

	// Bounded before each add; the merged sum stays within limit.
	index := map[string]int{}
	lines := make([]pricedLine, 0, len(input.Items))
	for i, item := range input.Items {
		if item.Quantity > limit {
			return "", nil, tooMany(i)
		}
		key := cart.LineKey(item.ProductID, item.VariantID)
		if at, ok := index[key]; ok {
			if lines[at].quantity > limit-item.Quantity {
				return "", nil, tooMany(i)
			}
			lines[at].quantity += item.Quantity
			continue
		}
		index[key] = len(lines)
		lines = append(lines, pricedLine{
			productID:   item.ProductID,
			variantID:   item.VariantID,
			quantity:    item.Quantity,
			clientPrice: item.Price,
		})
	}
	return method, lines, nil
}

func (s *service) commit(ctx context.Context, number string, now time.Time, method enums.PaymentMethod, input SubmitOrderInput, lines []pricedLine) (*OrderConfirmation, error) {
	var confirmation *OrderConfirmation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		priced, err := s.reprice(ctx, catalogRepo, lines)
		if err != nil {
			return err
		}

		var subtotal int64
		for _, line := range priced {
			subtotal += line.subtotal
		}
		shipping := s.shipping.ShippingFor(subtotal)

		order := &models.Order{
			ID:              uuid.New(),
			OrderNumber:     number,
			CustomerName:    strings.TrimSpace(input.Customer.Name),
			CustomerEmail:   strings.ToLower(strings.TrimSpace(input.Customer.Email)),
			CustomerPhone:   strings.TrimSpace(input.Customer.Phone),
			ShippingAddress: cleanAddress(input),
			Subtotal:        subtotal,
			ShippingCost:    shipping,
			TotalAmount:     subtotal + shipping,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			PaymentMethod:   method.String(),
			Notes:           cleanNotes(input.Notes),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := orderRepo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "order_number") {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateOrderNumber, err, "order number already used")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}

		items := make([]models.OrderItem, 0, len(priced))
		for i, line := range priced {
			productID := line.productID
			item := models.OrderItem{
				ID:          uuid.New(),
				OrderID:     order.ID,
				LineNo:      i + 1,
				ProductID:   &productID,
				VariantID:   line.variantID,
				ProductName: line.product.Name,
				Price:       line.unit,
				Quantity:    line.quantity,
				Subtotal:    line.subtotal,
				CreatedAt:   now,
			}
			if line.variant != nil {
				if label := line.variant.Label(); label != "" {
					item.VariantInfo = &label
				}
			}
			items = append(items, item)
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return s.partial(ctx, order, err, "insert order items")
		}
		order.Items = items

		depleted, err := s.decrementStock(ctx, catalogRepo, priced)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
				return err
			}
			return s.partial(ctx, order, err, "decrement stock")
		}

		if err := s.outbox.Emit(ctx, tx, orderCreatedEvent(order)); err != nil {
			return s.partial(ctx, order, err, "emit order_created")
		}
		for _, target := range depleted {
			if err := s.outbox.Emit(ctx, tx, stockDepletedEvent(target, order.OrderNumber)); err != nil {
				return s.partial(ctx, order, err, "emit stock_depleted")
			}
		}

		confirmation = &OrderConfirmation{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			TotalAmount:   order.TotalAmount,
			PaymentMethod: order.PaymentMethod,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmation, nil
}

// reprice loads the current catalog rows inside the transaction and computes
// the authoritative unit prices.
func (s *service) reprice(ctx context.Context, repo *catalog.Repository, lines []pricedLine) ([]pricedLine, error) {
	productIDs := make([]uuid.UUID, 0, len(lines))
	variantIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.productID)
		if line.variantID != nil {
			variantIDs = append(variantIDs, *line.variantID)
		}
	}
	products, err := repo.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	variants, err := repo.FindVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}

	out := make([]pricedLine, len(lines))
	var mismatches []map[string]any
	for i, line := range lines {
		product, ok := products[line.productID]
		if !ok {
			return nil, unavailable(line.productID, "", "product no longer exists")
		}
		if !product.IsActive {
			return nil, unavailable(product.ID, product.Name, fmt.Sprintf("%s is no longer available", product.Name))
		}
		line.product = product
		line.unit = product.EffectivePrice()

		if line.variantID != nil {
			variant, ok := variants[*line.variantID]
			if !ok || variant.ProductID != product.ID {
				return nil, unavailable(product.ID, product.Name, fmt.Sprintf("selected variant of %s does not exist", product.Name))
			}
			if !variant.IsActive {
				return nil, unavailable(product.ID, product.Name, fmt.Sprintf("selected variant of %s is no longer available", product.Name))
			}
			line.variant = &variant
			line.unit += variant.AdditionalPrice
		}
		line.subtotal = line.unit * int64(line.quantity)

		if line.clientPrice != nil && *line.clientPrice != line.unit {
			s.metrics.IncPriceMismatch()
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"product_id":   product.ID.String(),
				"client_price": *line.clientPrice,
				"server_price": line.unit,
			}), "order.price_mismatch")
			mismatches = append(mismatches, map[string]any{
				"productId":   product.ID.String(),
				"productName": product.Name,
				"clientPrice": *line.clientPrice,
				"serverPrice": line.unit,
			})
		}
		out[i] = line
	}

	if len(mismatches) > 0 && s.shop.StrictPricing {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "prices changed since the cart was built").
			WithDetails(map[string]any{"reason": "price_changed", "items": mismatches})
	}
	return out, nil
}

// decrementStock applies the conditional decrements in a fixed order and
// returns the counters that reached zero.
func (s *service) decrementStock(ctx context.Context, repo *catalog.Repository, lines []pricedLine) ([]stockTarget, error) {
	targets := make([]stockTarget, 0, len(lines))
	for _, line := range lines {
		t := stockTarget{id: line.productID, productID: line.productID, productName: line.product.Name, quantity: line.quantity}
		if line.variantID != nil {
			t.variant = true
			t.id = *line.variantID
		}
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].variant != targets[j].variant {
			return !targets[i].variant
		}
		return targets[i].id.String() < targets[j].id.String()
	})

	var depleted []stockTarget
	for _, t := range targets {
		decrement, read := repo.DecrementProductStock, repo.ProductStock
		if t.variant {
			decrement, read = repo.DecrementVariantStock, repo.VariantStock
		}

		ok, err := decrement(ctx, t.id, t.quantity)
		if err != nil {
			return nil, err
		}
		remaining, err := read(ctx, t.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			reason := "product"
			if t.variant {
				reason = "variant"
			}
			s.metrics.IncStockConflict(reason)
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", t.productName)).
				WithDetails(map[string]any{
					"productId":   t.productID.String(),
					"productName": t.productName,
					"requested":   t.quantity,
					"available":   remaining,
				})
		}
		if remaining == 0 {
			depleted = append(depleted, t)
		}
	}
	return depleted, nil
}

// partial tags infrastructure failures that happen after the order row was
// written; the surrounding transaction rolls all of it back.
func (s *service) partial(ctx context.Context, order *models.Order, err error, step string) error {
	s.logg.Error(s.logg.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"step":         step,
	}), "order.partial_commit_failure", err)
	return pkgerrors.Wrap(pkgerrors.CodePartialCommit, err, step).WithDetails(map[string]any{"step": step})
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*OrderDTO, error) {
	order, err := s.repo.FindByNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListByEmail(ctx context.Context, email string, params pagination.Params) (*CustomerOrderList, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, fieldError("email", "must be a valid email")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, fieldError("cursor", "is invalid")
	}
	rows, next, err := s.repo.ListByEmail(ctx, email, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := &CustomerOrderList{Orders: make([]OrderDTO, 0, len(rows))}
	for _, row := range rows {
		out.Orders = append(out.Orders, NewOrderDTO(row))
	}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func cleanAddress(input SubmitOrderInput) (addr types.ShippingAddress) {
	addr = input.ShippingAddress
	addr.Name = strings.TrimSpace(addr.Name)
	addr.Phone = strings.TrimSpace(addr.Phone)
	addr.Address = strings.TrimSpace(addr.Address)
	addr.City = strings.TrimSpace(addr.City)
	addr.Province = strings.TrimSpace(addr.Province)
	addr.PostalCode = strings.TrimSpace(addr.PostalCode)
	addr.Notes = cleanNotes(addr.Notes)
	return addr
}

func cleanNotes(in *string) *string {
	if in == nil {
		return nil
	}
	cleaned := strings.TrimSpace(notesPolicy.Sanitize(*in))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func unavailable(productID uuid.UUID, name, msg string) error {
	details := map[string]any{"productId": productID.String()}
	if name != "" {
		details["productName"] = name
	}
	return pkgerrors.New(pkgerrors.CodeProductUnavailable, msg).WithDetails(details)
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func submissionOutcome(err error) string {
	if err == nil {
		return "success"
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation:
		return "validation"
	case pkgerrors.CodeProductUnavailable:
		return "unavailable"
	case pkgerrors.CodeInsufficientStock:
		return "insufficient_stock"
	case pkgerrors.CodeStateConflict:
		return "price_changed"
	case pkgerrors.CodeDuplicateOrderNumber:
		return "number_exhausted"
	}
	return "error"
}
