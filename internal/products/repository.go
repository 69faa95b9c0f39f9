package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
)

// Repository wires together product persistence helpers. Stock movements go
// through conditional updates so concurrent checkouts cannot oversell.
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

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListByCountry returns the catalog for a country ordered by name.
func (r *Repository) ListByCountry(ctx context.Context, countryID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("country_id = ?", countryID).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// DecrementStock atomically subtracts quantity when enough stock remains.
// It reports false without touching the row when stock is insufficient.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, errors.New("quantity must be positive")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementStock adds quantity to the product's stock and optionally updates
// the recorded purchase cost.
func (r *Repository) IncrementStock(ctx context.Context, productID uuid.UUID, quantity int, newCost *decimal.Decimal) (bool, error) {
	if quantity <= 0 {
		return false, errors.New("quantity must be positive")
	}
	updates := map[string]any{
		"stock": gorm.Expr("stock + ?", quantity),
	}
	if newCost != nil {
		updates["purchase_cost"] = *newCost
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
