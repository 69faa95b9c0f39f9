package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/enums"
)

// PettyCashEntry is one audit-log row for a country's petty cash fund.
// BalanceAfter records the fund balance once the entry was applied.
type PettyCashEntry struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	CountryID    uuid.UUID                `gorm:"column:country_id;type:uuid;not null;index"`
	Country      *Country                 `gorm:"foreignKey:CountryID"`
	Operation    enums.PettyCashOperation `gorm:"column:operation;type:text;not null"`
	Amount       decimal.Decimal          `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter decimal.Decimal          `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Reason       string                   `gorm:"column:reason;not null"`
	ActorID      *uuid.UUID               `gorm:"column:actor_id;type:uuid"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (e *PettyCashEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
