package transactions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
)

// Repository persists transactions and their line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the transaction together with its items.
func (r *Repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindByID loads a transaction with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Preload("Items").First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByUser returns the user's transactions, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, onlyUnsettled bool) ([]models.Transaction, error) {
	var rows []models.Transaction
	q := r.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID)
	if onlyUnsettled {
		q = q.Where("settled = ?", false)
	}
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// ListByCountry returns a country's transactions, newest first, optionally
// filtered by settled state.
func (r *Repository) ListByCountry(ctx context.Context, countryID uuid.UUID, settled *bool) ([]models.Transaction, error) {
	var rows []models.Transaction
	q := r.db.WithContext(ctx).Preload("Items").Where("country_id = ?", countryID)
	if settled != nil {
		q = q.Where("settled = ?", *settled)
	}
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// MarkSettledByUser flips all of the user's open transactions to settled and
// reports how many rows changed.
func (r *Repository) MarkSettledByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("user_id = ? AND settled = ?", userID, false).
		UpdateColumn("settled", true)
	return res.RowsAffected, res.Error
}
