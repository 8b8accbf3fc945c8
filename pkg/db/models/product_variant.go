package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProductVariant carries its own stock counter and a price surcharge.
type ProductVariant struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Size            *string   `gorm:"column:size"`
	Color           *string   `gorm:"column:color"`
	Stock           int       `gorm:"column:stock;not null;default:0"`
	AdditionalPrice int64     `gorm:"column:additional_price;not null;default:0"`
	SKU             *string   `gorm:"column:sku"`
	IsActive        bool      `gorm:"column:is_active;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}

// Label renders the variant for order snapshots, e.g. "Size: M, Color: Red".
func (v ProductVariant) Label() string {
	parts := make([]string, 0, 2)
	if v.Size != nil && *v.Size != "" {
		parts = append(parts, fmt.Sprintf("Size: %s", *v.Size))
	}
	if v.Color != nil && *v.Color != "" {
		parts = append(parts, fmt.Sprintf("Color: %s", *v.Color))
	}
	return strings.Join(parts, ", ")
}
