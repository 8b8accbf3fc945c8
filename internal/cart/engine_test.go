package cart

import (
	"testing"

	"github.com/google/uuid"
)

func TestCartAddItemMergesByProductAndVariant(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	variantID := uuid.New()
	var c Cart

	mustAdd(t, &c, Line{ProductID: productID, UnitPrice: 1000, Quantity: 1})
	mustAdd(t, &c, Line{ProductID: productID, VariantID: &variantID, UnitPrice: 1500, Quantity: 1})
	mustAdd(t, &c, Line{ProductID: productID, UnitPrice: 900, Quantity: 2})

	if len(c.Items) != 2 {
		t.Fatalf("expected 2 distinct lines, got %d", len(c.Items))
	}
	if c.Items[0].Quantity != 3 || c.Items[0].UnitPrice != 900 {
		t.Fatalf("expected merged line qty 3 at refreshed price 900, got %+v", c.Items[0])
	}

	if err := c.AddItem(Line{ProductID: productID, Quantity: 0}); err != ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestCartUpdateAndRemove(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	var c Cart
	mustAdd(t, &c, Line{ProductID: productID, UnitPrice: 1000, Quantity: 1})

	if err := c.UpdateQuantity(productID, nil, 5); err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if c.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", c.Items[0].Quantity)
	}
	if err := c.UpdateQuantity(uuid.New(), nil, 1); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if err := c.UpdateQuantity(productID, nil, 0); err != nil {
		t.Fatalf("zero quantity should remove: %v", err)
	}
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", c.Items)
	}
	if c.RemoveItem(productID, nil) {
		t.Fatal("expected remove of missing line to report false")
	}

	mustAdd(t, &c, Line{ProductID: productID, UnitPrice: 1000, Quantity: 1})
	c.Clear()
	if len(c.Items) != 0 {
		t.Fatal("expected clear to empty the cart")
	}
}

func TestCartSummaryVariantPricing(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	variantID := uuid.New()
	var c Cart
	mustAdd(t, &c, Line{ProductID: productID, VariantID: &variantID, UnitPrice: 80000 + 5000, Quantity: 2})

	s := c.Summary(ShippingPolicy{FreeShippingThreshold: 250000, FlatShippingFee: 15000})
	if s.Subtotal != 170000 {
		t.Fatalf("expected subtotal 170000, got %d", s.Subtotal)
	}
	if s.ItemCount != 1 || s.TotalItems != 2 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if s.Total != s.Subtotal+s.Shipping {
		t.Fatalf("total invariant broken: %+v", s)
	}
}

func TestCartSummaryShippingThreshold(t *testing.T) {
	t.Parallel()

	policy := ShippingPolicy{FreeShippingThreshold: 250000, FlatShippingFee: 15000}

	cases := []struct {
		name     string
		subtotal int64
		shipping int64
	}{
		{name: "below threshold", subtotal: 200000, shipping: 15000},
		{name: "at threshold", subtotal: 250000, shipping: 0},
		{name: "above threshold", subtotal: 260000, shipping: 0},
	}
	for _, tc := range cases {
		var c Cart
		mustAdd(t, &c, Line{ProductID: uuid.New(), UnitPrice: tc.subtotal, Quantity: 1})
		s := c.Summary(policy)
		if s.Shipping != tc.shipping {
			t.Fatalf("%s: expected shipping %d, got %d", tc.name, tc.shipping, s.Shipping)
		}
		if s.Total != tc.subtotal+tc.shipping {
			t.Fatalf("%s: unexpected total %d", tc.name, s.Total)
		}
	}

	var empty Cart
	if s := empty.Summary(policy); s.Shipping != 0 || s.Total != 0 {
		t.Fatalf("empty cart should cost nothing, got %+v", s)
	}
	if got := (ShippingPolicy{FlatShippingFee: 100}).ShippingFor(1_000_000); got != 100 {
		t.Fatalf("zero threshold disables free shipping, got %d", got)
	}
}

func mustAdd(t *testing.T, c *Cart, line Line) {
	t.Helper()
	if err := c.AddItem(line); err != nil {
		t.Fatalf("add item: %v", err)
	}
}
