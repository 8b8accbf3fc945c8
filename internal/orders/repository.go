package orders

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists orders and their item snapshots.
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

// CreateOrder inserts the order row only; items are inserted by CreateItems.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Items").Create(order).Error
}

// CreateItems inserts the item snapshots of an order.
func (r *Repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *Repository) withItems() *gorm.DB {
	return r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no ASC")
	})
}

// FindByNumber loads an order with its items.
func (r *Repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.withItems().WithContext(ctx).First(&order, "order_number = ?", orderNumber).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByID loads an order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.withItems().WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByEmail returns a cursor page of the customer's orders, newest first.
func (r *Repository) ListByEmail(ctx context.Context, email string, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error) {
	limit = pagination.NormalizeLimit(limit)
	q := r.withItems().WithContext(ctx).Where("LOWER(customer_email) = ?", strings.ToLower(email))
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		last := rows[limit-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		rows = rows[:limit]
	}
	return rows, next, nil
}

// ListAdmin returns one page of orders matching filters, newest first.
func (r *Repository) ListAdmin(ctx context.Context, filters AdminOrderFilters, page pagination.Page) ([]models.Order, int64, error) {
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if term := strings.ToLower(strings.TrimSpace(filters.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("(LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ?)", like, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	if err := q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// TransitionStatus moves the order from one status to another. It reports
// false when the order was no longer in the expected status.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

// TransitionPaymentStatus moves the payment status and optionally rewrites the
// payment method label. It reports false when the status had already moved.
func (r *Repository) TransitionPaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, paymentMethod *string) (bool, error) {
	updates := map[string]any{"payment_status": to, "updated_at": time.Now().UTC()}
	if paymentMethod != nil {
		updates["payment_method"] = *paymentMethod
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// DeleteIfStatus removes the order only while it is in the given status; items cascade.
func (r *Repository) DeleteIfStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, status).Delete(&models.Order{})
	if res.Error != nil || res.RowsAffected != 1 {
		return false, res.Error
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return false, err
	}
	return true, nil
}
