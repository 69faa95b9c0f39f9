package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/enums"
)

// User represents a kiosk account. Admins share the table and are
// distinguished by Role; their country scope drives all admin endpoints.
type User struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email        *string         `gorm:"column:email;uniqueIndex"`
	PhoneNumber  string          `gorm:"column:phone_number;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Role         enums.UserRole  `gorm:"column:role;type:user_role;not null;default:'member'"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	OTPCode      *string         `gorm:"column:otp_code"`
	OTPExpiry    *time.Time      `gorm:"column:otp_expiry"`
	CountryID    uuid.UUID       `gorm:"column:country_id;type:uuid;not null"`
	Country      *Country        `gorm:"foreignKey:CountryID"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
