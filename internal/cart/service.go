package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

type linePricer interface {
	QuoteLine(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*catalog.LineQuote, error)
}

type cartStore interface {
	Load(ctx context.Context, token string) (*Cart, error)
	Update(ctx context.Context, token string, mutate func(*Cart) error) (*Cart, error)
	Delete(ctx context.Context, token string) error
}

// Service exposes the server-side cart keyed by an opaque client token.
type Service interface {
	Get(ctx context.Context, token string) (*View, error)
	AddItem(ctx context.Context, token string, input AddItemInput) (*View, error)
	UpdateQuantity(ctx context.Context, token string, input UpdateQuantityInput) (*View, error)
	RemoveItem(ctx context.Context, token string, productID uuid.UUID, variantID *uuid.UUID) (*View, error)
	Clear(ctx context.Context, token string) (*View, error)
}

// AddItemInput adds quantity units of a product (and optional variant).
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// UpdateQuantityInput sets the quantity of an existing line.
type UpdateQuantityInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// ItemView is a cart line with its computed subtotal.
type ItemView struct {
	Line
	Subtotal int64 `json:"subtotal"`
}

// View is the cart as returned to clients.
type View struct {
	Token   string     `json:"token"`
	Items   []ItemView `json:"items"`
	Summary Summary    `json:"summary"`
}

type service struct {
	store       cartStore
	pricer      linePricer
	policy      ShippingPolicy
	maxQuantity int
	logg        *logger.Logger
}

// NewService builds the cart service.
func NewService(store cartStore, pricer linePricer, policy ShippingPolicy, maxQuantity int, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("line pricer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxQuantity <= 0 {
		return nil, fmt.Errorf("max line quantity must be positive")
	}
	return &service{store: store, pricer: pricer, policy: policy, maxQuantity: maxQuantity, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, token string) (*View, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.view(token, c), nil
}

func (s *service) AddItem(ctx context.Context, token string, input AddItemInput) (*View, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, fieldError("productId", "is required")
	}
	if input.Quantity <= 0 || input.Quantity > s.maxQuantity {
		return nil, fieldError("quantity", fmt.Sprintf("must be between 1 and %d", s.maxQuantity))
	}

	quote, err := s.pricer.QuoteLine(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Update(ctx, token, func(c *Cart) error {
		if existing, ok := c.Find(input.ProductID, input.VariantID); ok && existing.Quantity+input.Quantity > s.maxQuantity {
			return fieldError("quantity", fmt.Sprintf("must be between 1 and %d", s.maxQuantity))
		}
		if err := c.AddItem(Line{
			ProductID:   quote.ProductID,
			VariantID:   quote.VariantID,
			ProductName: quote.ProductName,
			VariantInfo: quote.VariantInfo,
			UnitPrice:   quote.UnitPrice,
			Quantity:    input.Quantity,
		}); err != nil {
			return fieldError("quantity", err.Error())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"product_id": input.ProductID.String(), "quantity": input.Quantity}), "cart.item_added")
	return s.view(token, c), nil
}

func (s *service) UpdateQuantity(ctx context.Context, token string, input UpdateQuantityInput) (*View, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	if input.Quantity > s.maxQuantity {
		return nil, fieldError("quantity", fmt.Sprintf("must be at most %d", s.maxQuantity))
	}
	c, err := s.store.Update(ctx, token, func(c *Cart) error {
		if err := c.UpdateQuantity(input.ProductID, input.VariantID, input.Quantity); err != nil {
			return mapEngineError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(token, c), nil
}

func (s *service) RemoveItem(ctx context.Context, token string, productID uuid.UUID, variantID *uuid.UUID) (*View, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	c, err := s.store.Update(ctx, token, func(c *Cart) error {
		if !c.RemoveItem(productID, variantID) {
			return mapEngineError(ErrItemNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(token, c), nil
}

func (s *service) Clear(ctx context.Context, token string) (*View, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return nil, err
	}
	return s.view(token, &Cart{}), nil
}

func (s *service) view(token string, c *Cart) *View {
	items := make([]ItemView, 0, len(c.Items))
	for _, line := range c.Items {
		items = append(items, ItemView{Line: line, Subtotal: line.Subtotal()})
	}
	return &View{Token: token, Items: items, Summary: c.Summary(s.policy)}
}

func mapEngineError(err error) error {
	if errors.Is(err, ErrItemNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, err.Error())
	}
	return fieldError("quantity", err.Error())
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" "+msg).
		WithDetails(map[string]string{field: msg})
}
