package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable catalog entry. Prices are minor currency units.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Slug          string           `gorm:"column:slug;not null;uniqueIndex"`
	Description   *string          `gorm:"column:description"`
	Price         int64            `gorm:"column:price;not null"`
	DiscountPrice *int64           `gorm:"column:discount_price"`
	Stock         int              `gorm:"column:stock;not null;default:0"`
	IsActive      bool             `gorm:"column:is_active;not null"`
	CategoryID    *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	Category      *Category        `gorm:"foreignKey:CategoryID"`
	Variants      []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is the unit price a buyer pays before variant surcharges.
func (p Product) EffectivePrice() int64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}
