package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/internal/countries"
	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
)

// Service produces the aggregates shown on the admin dashboard.
type Service interface {
	CountryInfo(ctx context.Context, countryID uuid.UUID) (*CountryInfo, error)
	PurchaseTotals(ctx context.Context, countryID uuid.UUID) ([]PurchaseRow, error)
	OutstandingBalances(ctx context.Context, countryID uuid.UUID) ([]BalanceRow, error)
}

type service struct {
	db          *gorm.DB
	countryRepo *countries.Repository
}

// NewService constructs the reports service.
func NewService(db *gorm.DB, countryRepo *countries.Repository) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if countryRepo == nil {
		return nil, fmt.Errorf("country repository required")
	}
	return &service{db: db, countryRepo: countryRepo}, nil
}

func (s *service) CountryInfo(ctx context.Context, countryID uuid.UUID) (*CountryInfo, error) {
	if countryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}

	country, err := s.countryRepo.FindByID(ctx, countryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "country not found")
		}
		return nil, err
	}

	info := &CountryInfo{
		CountryID:      country.ID,
		CountryName:    country.Name,
		PettyCash:      country.PettyCash,
		UnsettledTotal: decimal.Zero,
	}

	db := s.db.WithContext(ctx)

	if err := db.Model(&models.User{}).
		Where("country_id = ? AND role = ?", countryID, enums.UserRoleMember).
		Count(&info.MemberCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).
		Where("country_id = ?", countryID).
		Count(&info.ProductCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Transaction{}).
		Where("country_id = ?", countryID).
		Count(&info.TransactionCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Transaction{}).
		Where("country_id = ? AND settled = ?", countryID, false).
		Count(&info.UnsettledCount).Error; err != nil {
		return nil, err
	}

	var total *string
	if err := db.Model(&models.Transaction{}).
		Where("country_id = ? AND settled = ?", countryID, false).
		Select("CAST(COALESCE(SUM(total), 0) AS TEXT)").
		Scan(&total).Error; err != nil {
		return nil, err
	}
	if total != nil {
		parsed, err := decimal.NewFromString(*total)
		if err != nil {
			return nil, fmt.Errorf("parsing unsettled total: %w", err)
		}
		info.UnsettledTotal = parsed
	}

	return info, nil
}

// PurchaseTotals lists every member of the country with lifetime spend and
// current balance, biggest spenders first. Members with no purchases still
// appear with zero totals.
func (s *service) PurchaseTotals(ctx context.Context, countryID uuid.UUID) ([]PurchaseRow, error) {
	if countryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}

	type aggRow struct {
		UserID      uuid.UUID
		PhoneNumber string
		Email       *string
		Balance     decimal.Decimal
		TxnCount    int64
		TotalSpent  *string
	}

	var raw []aggRow
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id AS user_id, users.phone_number, users.email, users.balance, "+
			"COUNT(transactions.id) AS txn_count, "+
			"CAST(COALESCE(SUM(transactions.total), 0) AS TEXT) AS total_spent").
		Joins("LEFT JOIN transactions ON transactions.user_id = users.id").
		Where("users.country_id = ? AND users.role = ?", countryID, enums.UserRoleMember).
		Group("users.id, users.phone_number, users.email, users.balance").
		Order("COALESCE(SUM(transactions.total), 0) DESC").
		Scan(&raw).Error
	if err != nil {
		return nil, err
	}

	rows := make([]PurchaseRow, 0, len(raw))
	for _, r := range raw {
		total := decimal.Zero
		if r.TotalSpent != nil {
			parsed, err := decimal.NewFromString(*r.TotalSpent)
			if err != nil {
				return nil, fmt.Errorf("parsing purchase total: %w", err)
			}
			total = parsed
		}
		rows = append(rows, PurchaseRow{
			UserID:      r.UserID,
			PhoneNumber: r.PhoneNumber,
			Email:       r.Email,
			TxnCount:    r.TxnCount,
			TotalSpent:  total,
			Balance:     r.Balance,
		})
	}
	return rows, nil
}

func (s *service) OutstandingBalances(ctx context.Context, countryID uuid.UUID) ([]BalanceRow, error) {
	if countryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}

	var members []models.User
	err := s.db.WithContext(ctx).
		Where("country_id = ? AND role = ? AND balance > 0", countryID, enums.UserRoleMember).
		Order("balance DESC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	rows := make([]BalanceRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, BalanceRow{
			UserID:      m.ID,
			PhoneNumber: m.PhoneNumber,
			Email:       m.Email,
			Balance:     m.Balance,
		})
	}
	return rows, nil
}
