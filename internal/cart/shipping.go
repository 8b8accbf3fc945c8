package cart

import "github.com/angelmondragon/storefront-backend/pkg/config"

// ShippingPolicy is shared by the cart and the order pipeline so both charge
// shipping identically.
type ShippingPolicy struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
}

// NewShippingPolicy reads the policy from shop configuration.
func NewShippingPolicy(cfg config.ShopConfig) ShippingPolicy {
	return ShippingPolicy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
	}
}

// ShippingFor returns the shipping cost for a non-empty basket worth subtotal.
// A zero threshold disables free shipping.
func (p ShippingPolicy) ShippingFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	if p.FreeShippingThreshold > 0 && subtotal >= p.FreeShippingThreshold {
		return 0
	}
	return p.FlatShippingFee
}
