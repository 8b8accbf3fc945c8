package catalog

import (
	"context"
	"io"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.FromGorm(conn), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, conn
}

func seedCategory(t *testing.T, conn *gorm.DB, slug string) models.Category {
	t.Helper()
	c := models.Category{ID: uuid.New(), Name: slug, Slug: slug, IsActive: true}
	require.NoError(t, conn.Create(&c).Error)
	return c
}

func seedProduct(t *testing.T, conn *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	require.NoError(t, conn.Omit("Category", "Variants").Create(&p).Error)
	return p
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	shirts := seedCategory(t, conn, "shirts")

	seedProduct(t, conn, models.Product{Name: "Blue Shirt", Price: 100000, DiscountPrice: int64Ptr(60000), Stock: 3, IsActive: true, CategoryID: &shirts.ID})
	seedProduct(t, conn, models.Product{Name: "Red Shirt", Price: 80000, Stock: 0, IsActive: true, CategoryID: &shirts.ID})
	seedProduct(t, conn, models.Product{Name: "Canvas Bag", Price: 50000, Stock: 10, IsActive: true})
	seedProduct(t, conn, models.Product{Name: "Hidden Shirt", Price: 10000, Stock: 10, IsActive: false, CategoryID: &shirts.ID})

	res, err := svc.ListProducts(ctx, ListProductsInput{Sort: SortPriceAsc})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, []string{"Canvas Bag", "Blue Shirt", "Red Shirt"}, names(res.Items))
	assert.Equal(t, int64(3), res.Pagination.Total)
	assert.Equal(t, pagination.DefaultLimit, res.Pagination.Limit)

	res, err = svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{CategorySlug: "shirts"}, Sort: SortNameDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Shirt", "Blue Shirt"}, names(res.Items))

	res, err = svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{MaxPrice: int64Ptr(70000)}, Sort: SortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Shirt", "Canvas Bag"}, names(res.Items), "max price applies to the discounted price")

	res, err = svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{Query: "SHIRT", InStock: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Shirt"}, names(res.Items))

	res, err = svc.ListProducts(ctx, ListProductsInput{Sort: SortNameAsc, Page: pagination.Page{Number: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Shirt"}, names(res.Items))
	assert.Equal(t, 2, res.Pagination.TotalPages)
}

func TestListProductsRejectsInvertedPriceRange(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListProducts(context.Background(), ListProductsInput{Filters: ProductListFilters{MinPrice: int64Ptr(10), MaxPrice: int64Ptr(5)}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetProductBySlugOnlyActive(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	p := seedProduct(t, conn, models.Product{Name: "Tee", Price: 50000, Stock: 1, IsActive: true})
	require.NoError(t, conn.Create(&models.ProductVariant{ID: uuid.New(), ProductID: p.ID, Size: strPtr("M"), IsActive: true, Stock: 2}).Error)
	require.NoError(t, conn.Create(&models.ProductVariant{ID: uuid.New(), ProductID: p.ID, Size: strPtr("L"), IsActive: false}).Error)
	seedProduct(t, conn, models.Product{Name: "Old Tee", Price: 50000, IsActive: false})

	dto, err := svc.GetProductBySlug(ctx, "tee")
	require.NoError(t, err)
	require.Len(t, dto.Variants, 1)
	assert.Equal(t, "Size: M", dto.Variants[0].Label)

	_, err = svc.GetProductBySlug(ctx, "old-tee")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestQuoteLine(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	p := seedProduct(t, conn, models.Product{Name: "Hoodie", Price: 100000, DiscountPrice: int64Ptr(80000), Stock: 4, IsActive: true})
	v := models.ProductVariant{ID: uuid.New(), ProductID: p.ID, Size: strPtr("XL"), AdditionalPrice: 5000, Stock: 2, IsActive: true}
	require.NoError(t, conn.Create(&v).Error)
	other := seedProduct(t, conn, models.Product{Name: "Cap", Price: 20000, IsActive: true})

	quote, err := svc.QuoteLine(ctx, p.ID, &v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(85000), quote.UnitPrice)
	assert.Equal(t, 2, quote.Available)
	assert.Equal(t, "Size: XL", quote.VariantInfo)

	_, err = svc.QuoteLine(ctx, other.ID, &v.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProductUnavailable))

	_, err = svc.QuoteLine(ctx, uuid.New(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProductUnavailable))
}

func TestCreateProductValidations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Socks", Price: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Socks", Price: 1000, DiscountPrice: int64Ptr(1000)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Socks", Slug: "Bad Slug", Price: 1000})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Socks", Price: 1000, Stock: -1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Socks", Price: 1000, CategoryID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateProductDerivesSlugAndSanitizes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:        "Summer Linen Shirt!",
		Description: strPtr(`<p>Breathable</p><script>alert(1)</script>`),
		Price:       150000,
		Stock:       5,
		IsActive:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "summer-linen-shirt", dto.Slug)
	require.NotNil(t, dto.Description)
	assert.Equal(t, "<p>Breathable</p>", *dto.Description)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Summer linen shirt", Price: 1000})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestUpdateProductClearsDiscountAndCategory(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	c := seedCategory(t, conn, "bags")
	p := seedProduct(t, conn, models.Product{Name: "Tote", Price: 40000, DiscountPrice: int64Ptr(30000), IsActive: true, CategoryID: &c.ID})

	dto, err := svc.UpdateProduct(ctx, p.ID, UpdateProductInput{
		DiscountPrice: types.NullableInt64{Valid: true},
		CategoryID:    types.NullableUUID{Valid: true},
	})
	require.NoError(t, err)
	assert.Nil(t, dto.DiscountPrice)
	assert.Nil(t, dto.CategoryID)
	assert.Equal(t, int64(40000), dto.EffectivePrice)

	_, err = svc.UpdateProduct(ctx, p.ID, UpdateProductInput{Price: int64Ptr(20000), DiscountPrice: types.NullableInt64{Valid: true, Value: int64Ptr(25000)}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteCategoryWithProductsConflicts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	c := seedCategory(t, conn, "shoes")
	p := seedProduct(t, conn, models.Product{Name: "Runner", Price: 1000, IsActive: true, CategoryID: &c.ID})

	err := svc.DeleteCategory(ctx, c.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	require.NoError(t, svc.DeleteCategory(ctx, c.ID))

	err = svc.DeleteCategory(ctx, c.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestVariantUniquenessAmongActive(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	p := seedProduct(t, conn, models.Product{Name: "Jacket", Price: 1000, IsActive: true})

	first, err := svc.CreateVariant(ctx, p.ID, VariantInput{Size: strPtr("M"), Color: strPtr("Red"), Stock: 1, IsActive: true})
	require.NoError(t, err)

	_, err = svc.CreateVariant(ctx, p.ID, VariantInput{Size: strPtr("M"), Color: strPtr("Red"), IsActive: true})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	inactive, err := svc.CreateVariant(ctx, p.ID, VariantInput{Size: strPtr("M"), Color: strPtr("Red"), IsActive: false})
	require.NoError(t, err, "inactive duplicates are allowed")

	active := true
	_, err = svc.UpdateVariant(ctx, inactive.ID, UpdateVariantInput{IsActive: &active})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	deactivate := false
	_, err = svc.UpdateVariant(ctx, first.ID, UpdateVariantInput{IsActive: &deactivate})
	require.NoError(t, err)
	_, err = svc.UpdateVariant(ctx, inactive.ID, UpdateVariantInput{IsActive: &active})
	require.NoError(t, err)

	_, err = svc.CreateVariant(ctx, uuid.New(), VariantInput{Size: strPtr("S")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestStockCorrections(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	p := seedProduct(t, conn, models.Product{Name: "Belt", Price: 1000, Stock: 1, IsActive: true})

	require.NoError(t, svc.SetProductStock(ctx, p.ID, 9))
	assert.True(t, pkgerrors.IsCode(svc.SetProductStock(ctx, p.ID, -1), pkgerrors.CodeValidation))
	assert.True(t, pkgerrors.IsCode(svc.SetProductStock(ctx, uuid.New(), 1), pkgerrors.CodeNotFound))

	dto, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, dto.Stock)
}

func TestCategoryLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, CategoryInput{Name: "New Arrivals", IsActive: false})
	require.NoError(t, err)
	assert.Equal(t, "new-arrivals", created.Slug)

	public, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)

	active := true
	_, err = svc.UpdateCategory(ctx, created.ID, UpdateCategoryInput{IsActive: &active})
	require.NoError(t, err)

	got, err := svc.GetCategoryBySlug(ctx, "new-arrivals")
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	all, err := svc.ListAllCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func names(items []ProductDTO) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}
