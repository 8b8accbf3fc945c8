package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidQuantity is returned when a line would be added with a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrItemNotFound is returned when a mutation targets a line the cart does not hold.
	ErrItemNotFound = errors.New("cart item not found")
)

// Line is one cart entry. UnitPrice is advisory; orders are re-priced on submission.
type Line struct {
	ProductID   uuid.UUID  `json:"productId"`
	VariantID   *uuid.UUID `json:"variantId,omitempty"`
	ProductName string     `json:"productName"`
	VariantInfo string     `json:"variantInfo,omitempty"`
	UnitPrice   int64      `json:"unitPrice"`
	Quantity    int        `json:"quantity"`
}

// Key identifies a line by product and variant.
func (l Line) Key() string {
	return LineKey(l.ProductID, l.VariantID)
}

// Subtotal is quantity times unit price.
func (l Line) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// LineKey builds the identity used to merge lines.
func LineKey(productID uuid.UUID, variantID *uuid.UUID) string {
	if variantID == nil {
		return productID.String()
	}
	return productID.String() + ":" + variantID.String()
}

// Cart holds the client's pending lines in insertion order.
type Cart struct {
	Items     []Line    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the advisory total shown to shoppers.
type Summary struct {
	ItemCount  int   `json:"itemCount"`
	TotalItems int   `json:"totalItems"`
	Subtotal   int64 `json:"subtotal"`
	Shipping   int64 `json:"shipping"`
	Total      int64 `json:"total"`
}

// AddItem merges line into the cart. An existing entry gains the quantity and
// takes the newly supplied price.
func (c *Cart) AddItem(line Line) error {
	if line.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	key := line.Key()
	for i := range c.Items {
		if c.Items[i].Key() != key {
			continue
		}
		c.Items[i].Quantity += line.Quantity
		c.Items[i].UnitPrice = line.UnitPrice
		if line.ProductName != "" {
			c.Items[i].ProductName = line.ProductName
		}
		if line.VariantInfo != "" {
			c.Items[i].VariantInfo = line.VariantInfo
		}
		return nil
	}
	c.Items = append(c.Items, line)
	return nil
}

// UpdateQuantity sets the quantity of a line; qty <= 0 removes it.
func (c *Cart) UpdateQuantity(productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if qty <= 0 {
		if !c.RemoveItem(productID, variantID) {
			return ErrItemNotFound
		}
		return nil
	}
	key := LineKey(productID, variantID)
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i].Quantity = qty
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem drops the line and reports whether it existed.
func (c *Cart) RemoveItem(productID uuid.UUID, variantID *uuid.UUID) bool {
	key := LineKey(productID, variantID)
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// Find returns the line for the product/variant pair.
func (c *Cart) Find(productID uuid.UUID, variantID *uuid.UUID) (Line, bool) {
	key := LineKey(productID, variantID)
	for _, item := range c.Items {
		if item.Key() == key {
			return item, true
		}
	}
	return Line{}, false
}

// Summary computes counts and totals under the shipping policy.
func (c Cart) Summary(policy ShippingPolicy) Summary {
	var s Summary
	s.ItemCount = len(c.Items)
	for _, item := range c.Items {
		s.TotalItems += item.Quantity
		s.Subtotal += item.Subtotal()
	}
	if len(c.Items) > 0 {
		s.Shipping = policy.ShippingFor(s.Subtotal)
	}
	s.Total = s.Subtotal + s.Shipping
	return s
}
