// Package money converts between integer minor units and the decimal strings
// exchanged with payment providers.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders minor units with two fractional digits, e.g. 170000 -> "170000.00".
func Format(minor int64) string {
	return decimal.NewFromInt(minor).StringFixed(2)
}

// ParseMinor parses a provider amount such as "170000.00". Fractional parts
// must be zero since storefront amounts are whole minor units.
func ParseMinor(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has a fractional part", raw)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", raw)
	}
	if !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q is out of range", raw)
	}
	return d.IntPart(), nil
}
