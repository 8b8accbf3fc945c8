package payments

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the payment_notifications ledger.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Insert records a delivery; repeating a delivery key fails the unique index.
func (r *Repository) Insert(ctx context.Context, n *models.PaymentNotification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// FindDelivery returns nil when this exact status of the transaction was
// never recorded.
func (r *Repository) FindDelivery(ctx context.Context, transactionID, transactionStatus, fraudStatus string) (*models.PaymentNotification, error) {
	var n models.PaymentNotification
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND transaction_status = ? AND fraud_status = ?", transactionID, transactionStatus, fraudStatus).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}
