package pettycash

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
)

// EntryRepository persists petty cash audit entries.
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository builds a repository tied to the provided GORM DB.
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *EntryRepository) WithTx(tx *gorm.DB) *EntryRepository {
	if tx == nil {
		return r
	}
	return &EntryRepository{db: tx}
}

// Insert stores a new audit entry.
func (r *EntryRepository) Insert(ctx context.Context, entry *models.PettyCashEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByCountry returns the most recent entries for a country.
func (r *EntryRepository) ListByCountry(ctx context.Context, countryID uuid.UUID, limit int) ([]models.PettyCashEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.PettyCashEntry
	err := r.db.WithContext(ctx).
		Where("country_id = ?", countryID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
