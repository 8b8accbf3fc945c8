package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes storefront catalog reads and back-office catalog management.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*CategoryDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	QuoteLine(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*LineQuote, error)

	ListAllCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	SetProductStock(ctx context.Context, id uuid.UUID, stock int) error

	CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, input UpdateVariantInput) (*VariantDTO, error)
	DeleteVariant(ctx context.Context, id uuid.UUID) error
	SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error
}

// CategoryInput holds the validated payload to create a category.
type CategoryInput struct {
	Name        string
	Slug        string
	Description *string
	IsActive    bool
}

// UpdateCategoryInput holds optional mutation values for a category.
type UpdateCategoryInput struct {
	Name        *string
	Slug        *string
	Description *string
	IsActive    *bool
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name          string
	Slug          string
	Description   *string
	Price         int64
	DiscountPrice *int64
	Stock         int
	IsActive      bool
	CategoryID    *uuid.UUID
}

// UpdateProductInput holds optional mutation values for a product. The
// nullable fields distinguish "clear" from "leave unchanged".
type UpdateProductInput struct {
	Name          *string
	Slug          *string
	Description   *string
	Price         *int64
	DiscountPrice types.NullableInt64
	IsActive      *bool
	CategoryID    types.NullableUUID
}

// VariantInput holds the validated payload to create a variant.
type VariantInput struct {
	Size            *string
	Color           *string
	Stock           int
	AdditionalPrice int64
	SKU             *string
	IsActive        bool
}

// UpdateVariantInput holds optional mutation values for a variant.
type UpdateVariantInput struct {
	Size            *string
	Color           *string
	AdditionalPrice *int64
	SKU             *string
	IsActive        *bool
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService constructs the catalog service.
func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListActiveCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categoryDTOs(rows), nil
}

func (s *service) ListAllCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categoryDTOs(rows), nil
}

func (s *service) GetCategoryBySlug(ctx context.Context, slug string) (*CategoryDTO, error) {
	category, err := s.repo.FindCategoryBySlug(ctx, strings.TrimSpace(slug), true)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	dto := NewCategoryDTO(*category)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	f := input.Filters
	if f.MinPrice != nil && *f.MinPrice < 0 || f.MaxPrice != nil && *f.MaxPrice < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price filters must be non-negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}
	if input.Sort == "" {
		input.Sort = SortNewest
	}
	input.Page = input.Page.Normalize()

	rows, total, err := s.repo.ListProducts(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	items := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewProductDTO(row))
	}
	return &ProductListResult{
		Items:      items,
		Pagination: types.NewPageMeta(input.Page.Number, input.Page.Limit, total),
	}, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindProductBySlug(ctx, strings.TrimSpace(slug), true)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

// QuoteLine prices a product/variant pair at the current catalog price.
func (s *service) QuoteLine(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*LineQuote, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unavailable(productID, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, unavailable(productID, product.Name+" is no longer available")
	}

	quote := &LineQuote{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.EffectivePrice(),
		Available:   product.Stock,
	}
	if variantID == nil {
		return quote, nil
	}

	for _, v := range product.Variants {
		if v.ID != *variantID {
			continue
		}
		if !v.IsActive {
			return nil, unavailable(productID, product.Name+" variant is no longer available")
		}
		quote.VariantID = &v.ID
		quote.VariantInfo = v.Label()
		quote.UnitPrice += v.AdditionalPrice
		quote.Available = v.Stock
		return quote, nil
	}
	return nil, unavailable(productID, "variant does not belong to "+product.Name)
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fieldError("name", "is required")
	}
	slug, err := ResolveSlug(input.Slug, name)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: sanitizeDescription(input.Description),
		IsActive:    input.IsActive,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, uniqueOr(err, "slug already in use", "insert category")
	}
	dto := NewCategoryDTO(*category)
	return &dto, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fieldError("name", "is required")
		}
		category.Name = name
	}
	if input.Slug != nil {
		slug, err := ResolveSlug(*input.Slug, category.Name)
		if err != nil {
			return nil, err
		}
		category.Slug = slug
	}
	if input.Description != nil {
		category.Description = sanitizeDescription(input.Description)
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, uniqueOr(err, "slug already in use", "update category")
	}
	dto := NewCategoryDTO(*category)
	return &dto, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindCategoryByID(ctx, id); err != nil {
			return notFoundOr(err, "category not found", "load category")
		}
		count, err := repo.CountProductsInCategory(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category products")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "category still has products").
				WithDetails(map[string]any{"products": count})
		}
		if err := repo.DeleteCategory(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		return nil
	})
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fieldError("name", "is required")
	}
	slug, err := ResolveSlug(input.Slug, name)
	if err != nil {
		return nil, err
	}
	if err := validatePricing(input.Price, input.DiscountPrice); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, fieldError("stock", "must be non-negative")
	}

	product := &models.Product{
		Name:          name,
		Slug:          slug,
		Description:   sanitizeDescription(input.Description),
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Stock:         input.Stock,
		IsActive:      input.IsActive,
		CategoryID:    input.CategoryID,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureCategory(ctx, repo, product.CategoryID); err != nil {
			return err
		}
		if err := repo.CreateProduct(ctx, product); err != nil {
			return uniqueOr(err, "slug already in use", "insert product")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"product_id": product.ID.String(), "slug": product.Slug}), "catalog.product_created")
	return s.GetProduct(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProductByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "product not found", "load product")
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return fieldError("name", "is required")
			}
			product.Name = name
		}
		if input.Slug != nil {
			slug, err := ResolveSlug(*input.Slug, product.Name)
			if err != nil {
				return err
			}
			product.Slug = slug
		}
		if input.Description != nil {
			product.Description = sanitizeDescription(input.Description)
		}
		if input.Price != nil {
			product.Price = *input.Price
		}
		if input.DiscountPrice.Valid {
			product.DiscountPrice = input.DiscountPrice.Value
		}
		if err := validatePricing(product.Price, product.DiscountPrice); err != nil {
			return err
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}
		if input.CategoryID.Valid {
			if err := ensureCategory(ctx, repo, input.CategoryID.Value); err != nil {
				return err
			}
			product.CategoryID = input.CategoryID.Value
		}

		product.Category = nil
		product.Variants = nil
		if err := repo.UpdateProduct(ctx, product); err != nil {
			return uniqueOr(err, "slug already in use", "update product")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindProductByID(ctx, id); err != nil {
			return notFoundOr(err, "product not found", "load product")
		}
		if err := repo.DeleteProduct(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		return nil
	})
}

func (s *service) SetProductStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock < 0 {
		return fieldError("stock", "must be non-negative")
	}
	ok, err := s.repo.SetProductStock(ctx, id, stock)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set product stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"product_id": id.String(), "stock": stock}), "catalog.stock_corrected")
	return nil
}

func (s *service) CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error) {
	if err := validateVariant(input.Stock, input.AdditionalPrice); err != nil {
		return nil, err
	}
	variant := &models.ProductVariant{
		ProductID:       productID,
		Size:            trimOptional(input.Size),
		Color:           trimOptional(input.Color),
		Stock:           input.Stock,
		AdditionalPrice: input.AdditionalPrice,
		SKU:             trimOptional(input.SKU),
		IsActive:        input.IsActive,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindProductByID(ctx, productID); err != nil {
			return notFoundOr(err, "product not found", "load product")
		}
		if variant.IsActive {
			if err := ensureVariantUnique(ctx, repo, variant, nil); err != nil {
				return err
			}
		}
		if err := repo.CreateVariant(ctx, variant); err != nil {
			return uniqueOr(err, "variant size/color already exists", "insert variant")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	dto := NewVariantDTO(*variant)
	return &dto, nil
}

func (s *service) UpdateVariant(ctx context.Context, id uuid.UUID, input UpdateVariantInput) (*VariantDTO, error) {
	var updated models.ProductVariant
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		variant, err := repo.FindVariantByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "variant not found", "load variant")
		}
		if input.Size != nil {
			variant.Size = trimOptional(input.Size)
		}
		if input.Color != nil {
			variant.Color = trimOptional(input.Color)
		}
		if input.AdditionalPrice != nil {
			variant.AdditionalPrice = *input.AdditionalPrice
		}
		if input.SKU != nil {
			variant.SKU = trimOptional(input.SKU)
		}
		if input.IsActive != nil {
			variant.IsActive = *input.IsActive
		}
		if err := validateVariant(variant.Stock, variant.AdditionalPrice); err != nil {
			return err
		}
		if variant.IsActive {
			if err := ensureVariantUnique(ctx, repo, variant, &variant.ID); err != nil {
				return err
			}
		}
		if err := repo.UpdateVariant(ctx, variant); err != nil {
			return uniqueOr(err, "variant size/color already exists", "update variant")
		}
		updated = *variant
		return nil
	}); err != nil {
		return nil, err
	}
	dto := NewVariantDTO(updated)
	return &dto, nil
}

func (s *service) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindVariantByID(ctx, id); err != nil {
			return notFoundOr(err, "variant not found", "load variant")
		}
		if err := repo.DeleteVariant(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete variant")
		}
		return nil
	})
}

func (s *service) SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock < 0 {
		return fieldError("stock", "must be non-negative")
	}
	ok, err := s.repo.SetVariantStock(ctx, id, stock)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set variant stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"variant_id": id.String(), "stock": stock}), "catalog.stock_corrected")
	return nil
}

func validatePricing(price int64, discount *int64) error {
	if price <= 0 {
		return fieldError("price", "must be greater than 0")
	}
	if discount != nil {
		if *discount <= 0 {
			return fieldError("discountPrice", "must be greater than 0")
		}
		if *discount >= price {
			return fieldError("discountPrice", "must be lower than price")
		}
	}
	return nil
}

func validateVariant(stock int, additionalPrice int64) error {
	if stock < 0 {
		return fieldError("stock", "must be non-negative")
	}
	if additionalPrice < 0 {
		return fieldError("additionalPrice", "must be non-negative")
	}
	return nil
}

func ensureCategory(ctx context.Context, repo *Repository, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := repo.FindCategoryByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fieldError("categoryId", "unknown category")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return nil
}

func ensureVariantUnique(ctx context.Context, repo *Repository, v *models.ProductVariant, exclude *uuid.UUID) error {
	exists, err := repo.ActiveVariantExists(ctx, v.ProductID, v.Size, v.Color, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check variant uniqueness")
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "variant size/color already exists").
			WithDetails(map[string]any{"size": deref(v.Size), "color": deref(v.Color)})
	}
	return nil
}

func trimOptional(in *string) *string {
	if in == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*in)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func categoryDTOs(rows []models.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewCategoryDTO(row))
	}
	return out
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" "+msg).
		WithDetails(map[string]string{field: msg})
}

func unavailable(productID uuid.UUID, msg string) error {
	return pkgerrors.New(pkgerrors.CodeProductUnavailable, msg).
		WithDetails(map[string]any{"productId": productID.String()})
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func uniqueOr(err error, conflictMsg, op string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, conflictMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
