package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ShippingAddress is the delivery snapshot stored with an order as jsonb.
type ShippingAddress struct {
	Name       string  `json:"name" validate:"required,max=120"`
	Phone      string  `json:"phone" validate:"required,max=32"`
	Address    string  `json:"address" validate:"required,max=500"`
	City       string  `json:"city" validate:"required,max=120"`
	Province   string  `json:"province" validate:"required,max=120"`
	PostalCode string  `json:"postalCode" validate:"required,max=16"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// Value marshals the address for jsonb columns.
func (a ShippingAddress) Value() (driver.Value, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("shipping address: %w", err)
	}
	return string(raw), nil
}

// Scan decodes a jsonb (or text) column into the address.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*a = ShippingAddress{}
		return nil
	}
	return json.Unmarshal(raw, a)
}
