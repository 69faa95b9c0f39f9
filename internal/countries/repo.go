package countries

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
)

// Repository exposes country persistence, including guarded petty cash moves.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a countries repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a country.
func (r *Repository) Create(ctx context.Context, country *models.Country) error {
	return r.db.WithContext(ctx).Create(country).Error
}

// FindByID loads a country by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Country, error) {
	var country models.Country
	if err := r.db.WithContext(ctx).First(&country, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &country, nil
}

// FindByName loads a country by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Country, error) {
	var country models.Country
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&country).Error; err != nil {
		return nil, err
	}
	return &country, nil
}

// List returns all countries ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Country, error) {
	var rows []models.Country
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// DebitPettyCash conditionally subtracts amount from the fund. It reports
// false when the fund would go negative; the row is left untouched in that
// case so callers can map it to a conflict.
func (r *Repository) DebitPettyCash(ctx context.Context, countryID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if amount.Sign() <= 0 {
		return false, errors.New("debit amount must be positive")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Country{}).
		Where("id = ? AND petty_cash >= ?", countryID, amount).
		UpdateColumn("petty_cash", gorm.Expr("petty_cash - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreditPettyCash unconditionally adds amount to the fund.
func (r *Repository) CreditPettyCash(ctx context.Context, countryID uuid.UUID, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return errors.New("credit amount must be positive")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Country{}).
		Where("id = ?", countryID).
		UpdateColumn("petty_cash", gorm.Expr("petty_cash + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
