package catalog

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// CategoryDTO is the API view of a category.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VariantDTO is the API view of a product variant.
type VariantDTO struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"productId"`
	Size            *string   `json:"size,omitempty"`
	Color           *string   `json:"color,omitempty"`
	Label           string    `json:"label"`
	Stock           int       `json:"stock"`
	AdditionalPrice int64     `json:"additionalPrice"`
	SKU             *string   `json:"sku,omitempty"`
	IsActive        bool      `json:"isActive"`
}

// ProductDTO is the API view of a product.
type ProductDTO struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Slug           string       `json:"slug"`
	Description    *string      `json:"description,omitempty"`
	Price          int64        `json:"price"`
	DiscountPrice  *int64       `json:"discountPrice,omitempty"`
	EffectivePrice int64        `json:"effectivePrice"`
	Stock          int          `json:"stock"`
	InStock        bool         `json:"inStock"`
	IsActive       bool         `json:"isActive"`
	CategoryID     *uuid.UUID   `json:"categoryId,omitempty"`
	Category       *CategoryDTO `json:"category,omitempty"`
	Variants       []VariantDTO `json:"variants,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// ProductListResult is one page of products.
type ProductListResult struct {
	Items      []ProductDTO   `json:"items"`
	Pagination types.PageMeta `json:"pagination"`
}

// LineQuote is the current catalog price of one product/variant combination.
type LineQuote struct {
	ProductID   uuid.UUID  `json:"productId"`
	VariantID   *uuid.UUID `json:"variantId,omitempty"`
	ProductName string     `json:"productName"`
	VariantInfo string     `json:"variantInfo,omitempty"`
	UnitPrice   int64      `json:"unitPrice"`
	Available   int        `json:"available"`
}

func NewCategoryDTO(m models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          m.ID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func NewVariantDTO(m models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:              m.ID,
		ProductID:       m.ProductID,
		Size:            m.Size,
		Color:           m.Color,
		Label:           m.Label(),
		Stock:           m.Stock,
		AdditionalPrice: m.AdditionalPrice,
		SKU:             m.SKU,
		IsActive:        m.IsActive,
	}
}

func NewProductDTO(m models.Product) ProductDTO {
	dto := ProductDTO{
		ID:             m.ID,
		Name:           m.Name,
		Slug:           m.Slug,
		Description:    m.Description,
		Price:          m.Price,
		DiscountPrice:  m.DiscountPrice,
		EffectivePrice: m.EffectivePrice(),
		Stock:          m.Stock,
		InStock:        m.Stock > 0,
		IsActive:       m.IsActive,
		CategoryID:     m.CategoryID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Category != nil {
		c := NewCategoryDTO(*m.Category)
		dto.Category = &c
	}
	for _, v := range m.Variants {
		dto.Variants = append(dto.Variants, NewVariantDTO(v))
	}
	return dto
}
