package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is a completed credit checkout. Total is the server-computed
// sum of item price * quantity at the moment of purchase. Settled flips to
// true when an admin settles the member's balance.
type Transaction struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Total     decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Settled   bool              `gorm:"column:settled;not null;default:false"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	User      *User             `gorm:"foreignKey:UserID"`
	CountryID uuid.UUID         `gorm:"column:country_id;type:uuid;not null;index"`
	Country   *Country          `gorm:"foreignKey:CountryID"`
	Items     []TransactionItem `gorm:"foreignKey:TransactionID"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
