package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry for a single country's kiosk. Stock is guarded
// by a DB-level CHECK and only ever changed through conditional updates.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	Image        string          `gorm:"column:image;not null"`
	PurchaseCost decimal.Decimal `gorm:"column:purchase_cost;type:numeric(12,2);not null"`
	SellingPrice decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null"`
	Stock        int             `gorm:"column:stock;not null;default:0;check:stock >= 0"`
	CountryID    uuid.UUID       `gorm:"column:country_id;type:uuid;not null"`
	Country      *Country        `gorm:"foreignKey:CountryID"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
