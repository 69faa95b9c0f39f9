package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/internal/pettycash"
	"github.com/SaifAzz/kiosk/pkg/db/models"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
)

// Service exposes catalog management for a country's kiosk. Creating or
// restocking a product pays for the goods out of the country's petty cash.
type Service interface {
	List(ctx context.Context, countryID uuid.UUID) ([]ProductDTO, error)
	Get(ctx context.Context, countryID, productID uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Restock(ctx context.Context, input RestockInput) (*ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name         string
	Image        string
	PurchaseCost decimal.Decimal
	SellingPrice decimal.Decimal
	Stock        int
	CountryID    uuid.UUID
	ActorID      *uuid.UUID
}

// RestockInput adds units to an existing product, optionally at a new cost.
type RestockInput struct {
	ProductID uuid.UUID
	Quantity  int
	NewCost   *decimal.Decimal
	CountryID uuid.UUID
	ActorID   *uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type fundDebitor interface {
	DebitTx(ctx context.Context, tx *gorm.DB, countryID uuid.UUID, amount decimal.Decimal, reason string, actorID *uuid.UUID) error
}

type service struct {
	tx   txRunner
	repo *Repository
	fund fundDebitor
}

// NewService constructs a product service instance.
func NewService(tx txRunner, repo *Repository, fund pettycash.Service) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if fund == nil {
		return nil, fmt.Errorf("petty cash service required")
	}
	return &service{tx: tx, repo: repo, fund: fund}, nil
}

func (s *service) List(ctx context.Context, countryID uuid.UUID) ([]ProductDTO, error) {
	if countryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}
	rows, err := s.repo.ListByCountry(ctx, countryID)
	if err != nil {
		return nil, err
	}
	return FromModels(rows), nil
}

func (s *service) Get(ctx context.Context, countryID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadScoped(ctx, s.repo, countryID, productID)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:         strings.TrimSpace(input.Name),
		Image:        input.Image,
		PurchaseCost: input.PurchaseCost,
		SellingPrice: input.SellingPrice,
		Stock:        input.Stock,
		CountryID:    input.CountryID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return err
		}

		outlay := input.PurchaseCost.Mul(decimal.NewFromInt(int64(input.Stock)))
		if outlay.Sign() > 0 {
			reason := fmt.Sprintf("stock purchase: %s x%d", product.Name, input.Stock)
			if err := s.fund.DebitTx(ctx, tx, input.CountryID, outlay, reason, input.ActorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) Restock(ctx context.Context, input RestockInput) (*ProductDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.NewCost != nil && input.NewCost.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost cannot be negative")
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := s.loadScoped(ctx, repo, input.CountryID, input.ProductID)
		if err != nil {
			return err
		}

		costPerUnit := product.PurchaseCost
		if input.NewCost != nil {
			costPerUnit = *input.NewCost
		}

		ok, err := repo.IncrementStock(ctx, product.ID, input.Quantity, input.NewCost)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		outlay := costPerUnit.Mul(decimal.NewFromInt(int64(input.Quantity)))
		if outlay.Sign() > 0 {
			reason := fmt.Sprintf("restock: %s x%d", product.Name, input.Quantity)
			if err := s.fund.DebitTx(ctx, tx, input.CountryID, outlay, reason, input.ActorID); err != nil {
				return err
			}
		}

		updated, err = repo.FindByID(ctx, product.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) loadScoped(ctx context.Context, repo *Repository, countryID, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if countryID != uuid.Nil && product.CountryID != countryID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func validateCreate(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.CountryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if input.PurchaseCost.Sign() < 0 || input.SellingPrice.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	return nil
}
