package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
)

// UserDTO is the transport shape that omits credentials and OTP state.
type UserDTO struct {
	ID          uuid.UUID       `json:"id"`
	Email       *string         `json:"email,omitempty"`
	PhoneNumber string          `json:"phone_number"`
	Role        enums.UserRole  `json:"role"`
	Balance     decimal.Decimal `json:"balance"`
	CountryID   uuid.UUID       `json:"country_id"`
	IsActive    bool            `json:"is_active"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        *string
	PhoneNumber  string
	PasswordHash string
	Role         enums.UserRole
	CountryID    uuid.UUID
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		Balance:     u.Balance,
		CountryID:   u.CountryID,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.UserRoleMember
	}

	return &models.User{
		Email:        c.Email,
		PhoneNumber:  c.PhoneNumber,
		PasswordHash: c.PasswordHash,
		Role:         role,
		CountryID:    c.CountryID,
		IsActive:     isActive,
	}
}
