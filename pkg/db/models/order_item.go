package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots the priced line at commit time. Product and variant
// references are weak so catalog deletes never rewrite order history.
type OrderItem struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	LineNo      int        `gorm:"column:line_no;not null"`
	ProductID   *uuid.UUID `gorm:"column:product_id;type:uuid"`
	VariantID   *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	ProductName string     `gorm:"column:product_name;not null"`
	VariantInfo *string    `gorm:"column:variant_info"`
	Price       int64      `gorm:"column:price;not null"`
	Quantity    int        `gorm:"column:quantity;not null"`
	Subtotal    int64      `gorm:"column:subtotal;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
