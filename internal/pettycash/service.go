package pettycash

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

// Service manages a country's petty cash fund. Every movement is written to
// the audit log, and debits are rejected when the fund would go negative.
type Service interface {
	Balance(ctx context.Context, countryID uuid.UUID) (decimal.Decimal, error)
	BalanceTx(ctx context.Context, tx *gorm.DB, countryID uuid.UUID) (decimal.Decimal, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.Country, error)
	Entries(ctx context.Context, countryID uuid.UUID, limit int) ([]models.PettyCashEntry, error)

	// DebitTx and CreditTx move funds inside a caller-owned transaction and
	// append the audit entry within it.
	DebitTx(ctx context.Context, tx *gorm.DB, countryID uuid.UUID, amount decimal.Decimal, reason string, actorID *uuid.UUID) error
	CreditTx(ctx context.Context, tx *gorm.DB, countryID uuid.UUID, amount decimal.Decimal, reason string, actorID *uuid.UUID) error
}

// AdjustInput captures a manual admin adjustment.
type AdjustInput struct {
	CountryID uuid.UUID
	Operation enums.PettyCashOperation
	Amount    decimal.Decimal
	Reason    string
	ActorID   *uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tx          txRunner
	countryRepo *countries.Repository
	entryRepo   *EntryRepository
}

// NewService constructs the petty cash service.
func NewService(tx txRunner, countryRepo *countries.Repository, entryRepo *EntryRepository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if countryRepo == nil {
		return nil, fmt.Errorf("country repository required")
	}
	if entryRepo == nil {
		return nil, fmt.Errorf("entry repository required")
	}
	return &service{tx: tx, countryRepo: countryRepo, entryRepo: entryRepo}, nil
}

func (s *service) Balance(ctx context.Context, countryID uuid.UUID) (decimal.Decimal, error) {
	country, err := s.countryRepo.FindByID(ctx, countryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "country not found")
		}
		return decimal.Zero, err
	}
	return country.PettyCash, nil
}

func (s *service) BalanceTx(ctx context.Context, tx *gorm.DB, countryID uuid.UUID) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, errors.New("transaction required")
	}
	country, err := s.countryRepo.WithTx(tx).FindByID(ctx, countryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "country not found")
		}
		return decimal.Zero, err
	}
	return country.PettyCash, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.Country, error) {
	if input.CountryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}
	if !input.Operation.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operation must be add or subtract")
	}
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var updated *models.Country
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		switch input.Operation {
		case enums.PettyCashOperationAdd:
			if err := s.CreditTx(ctx, tx, input.CountryID, input.Amount, input.Reason, input.ActorID); err != nil {
				return err
			}
		case enums.PettyCashOperationSubtract:
			if err := s.DebitTx(ctx, tx, input.CountryID, input.Amount, input.Reason, input.ActorID); err != nil {
				return err
			}
		}

		country, err := s.countryRepo.WithTx(tx).FindByID(ctx, input.CountryID)
		if err != nil {
			return err
		}
		updated = country
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Entries(ctx context.Context, countryID uuid.UUID, limit int) ([]models.PettyCashEntry, error) {
	if countryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}
	return s.entryRepo.ListByCountry(ctx, countryID, limit)
}

func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, countryID uuid.UUID, amount decimal.Decimal, reason string, actorID *uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	countryRepo := s.countryRepo.WithTx(tx)

	ok, err := countryRepo.DebitPettyCash(ctx, countryID, amount)
	if err != nil {
		return err
	}
	if !ok {
		if _, findErr := countryRepo.FindByID(ctx, countryID); errors.Is(findErr, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "country not found")
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient petty cash")
	}

	return s.appendEntry(ctx, tx, countryID, enums.PettyCashOperationSubtract, amount, reason, actorID)
}

func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, countryID uuid.UUID, amount decimal.Decimal, reason string, actorID *uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := s.countryRepo.WithTx(tx).CreditPettyCash(ctx, countryID, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "country not found")
		}
		return err
	}
	return s.appendEntry(ctx, tx, countryID, enums.PettyCashOperationAdd, amount, reason, actorID)
}

func (s *service) appendEntry(ctx context.Context, tx *gorm.DB, countryID uuid.UUID, op enums.PettyCashOperation, amount decimal.Decimal, reason string, actorID *uuid.UUID) error {
	country, err := s.countryRepo.WithTx(tx).FindByID(ctx, countryID)
	if err != nil {
		return err
	}
	entry := models.PettyCashEntry{
		CountryID:    countryID,
		Operation:    op,
		Amount:       amount,
		BalanceAfter: country.PettyCash,
		Reason:       reason,
		ActorID:      actorID,
	}
	return s.entryRepo.WithTx(tx).Insert(ctx, &entry)
}
