package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wires together all catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListActiveCategories returns active categories ordered by name.
func (r *Repository) ListActiveCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListCategories returns every category for back-office screens.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindCategoryBySlug loads a category by slug. activeOnly hides disabled rows.
func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string, activeOnly bool) (*models.Category, error) {
	q := r.db.WithContext(ctx).Where("slug = ?", slug)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var category models.Category
	if err := q.First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindCategoryByID loads a category by id.
func (r *Repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a category row.
func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(category).Error
}

// UpdateCategory persists every column of the category.
func (r *Repository) UpdateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

// DeleteCategory removes the category row.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id).Error
}

// CountProductsInCategory counts products referencing the category.
func (r *Repository) CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

// ListProducts returns one page of products matching the filter plus the total match count.
func (r *Repository) ListProducts(ctx context.Context, input ListProductsInput) ([]models.Product, int64, error) {
	page := input.Page.Normalize()

	q := r.db.WithContext(ctx).Model(&models.Product{}).Table("products AS p")
	if !input.IncludeInactive {
		q = q.Where("p.is_active = ?", true)
	}

	f := input.Filters
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("(LOWER(p.name) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(p.description, '')) LIKE ? ESCAPE '\\')", like, like)
	}
	if f.CategorySlug != "" {
		q = q.Joins("JOIN categories c ON c.id = p.category_id").Where("c.slug = ?", f.CategorySlug)
	}
	if f.MinPrice != nil {
		q = q.Where("COALESCE(p.discount_price, p.price) >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("COALESCE(p.discount_price, p.price) <= ?", *f.MaxPrice)
	}
	if f.InStock {
		q = q.Where("p.stock > 0")
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	if err := q.
		Select("p.*").
		Preload("Category").
		Order(orderClause(input.Sort)).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderClause(sort ProductSort) string {
	switch sort {
	case SortPriceAsc:
		return "COALESCE(p.discount_price, p.price) ASC, p.id ASC"
	case SortPriceDesc:
		return "COALESCE(p.discount_price, p.price) DESC, p.id ASC"
	case SortNameAsc:
		return "p.name ASC, p.id ASC"
	case SortNameDesc:
		return "p.name DESC, p.id ASC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}

// FindProductBySlug loads a product with its category and active variants.
func (r *Repository) FindProductBySlug(ctx context.Context, slug string, activeOnly bool) (*models.Product, error) {
	q := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("created_at ASC, id ASC")
		}).
		Where("slug = ?", slug)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var product models.Product
	if err := q.First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductByID loads the product with every variant.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductsByIDs loads products without associations, keyed by id.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// FindVariantsByIDs loads variants keyed by id.
func (r *Repository) FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error) {
	out := make(map[uuid.UUID]models.ProductVariant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// CreateProduct inserts a product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Category", "Variants").Create(product).Error
}

// UpdateProduct persists every column of the product without touching associations.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Category", "Variants").Save(product).Error
}

// DeleteProduct removes the product; variants cascade, order items keep their snapshot.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// FindVariantByID loads a variant.
func (r *Repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// CreateVariant inserts a variant row.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(variant).Error
}

// UpdateVariant persists every column of the variant.
func (r *Repository) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Save(variant).Error
}

// DeleteVariant removes the variant row.
func (r *Repository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductVariant{}, "id = ?", id).Error
}

// ActiveVariantExists reports whether another active variant of the product
// already uses the (size, color) combination. excludeID skips the variant being updated.
func (r *Repository) ActiveVariantExists(ctx context.Context, productID uuid.UUID, size, color *string, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND is_active = ?", productID, true).
		Where("COALESCE(size, '') = ? AND COALESCE(color, '') = ?", deref(size), deref(color))
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DecrementProductStock subtracts qty only when enough stock remains.
// It reports false when the guard rejected the update.
func (r *Repository) DecrementProductStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementVariantStock subtracts qty from the variant counter only when enough stock remains.
func (r *Repository) DecrementVariantStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ProductStock reads the current product counter.
func (r *Repository) ProductStock(ctx context.Context, id uuid.UUID) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Pluck("stock", &stock).Error
	return stock, err
}

// VariantStock reads the current variant counter.
func (r *Repository) VariantStock(ctx context.Context, id uuid.UUID) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).Model(&models.ProductVariant{}).Where("id = ?", id).Pluck("stock", &stock).Error
	return stock, err
}

// SetProductStock overwrites the product counter.
func (r *Repository) SetProductStock(ctx context.Context, id uuid.UUID, stock int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).UpdateColumn("stock", stock)
	return res.RowsAffected == 1, res.Error
}

// SetVariantStock overwrites the variant counter.
func (r *Repository) SetVariantStock(ctx context.Context, id uuid.UUID, stock int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ProductVariant{}).Where("id = ?", id).UpdateColumn("stock", stock)
	return res.RowsAffected == 1, res.Error
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
