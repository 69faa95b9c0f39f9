package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/internal/products"
	"github.com/SaifAzz/kiosk/internal/users"
	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/metrics"
	"github.com/SaifAzz/kiosk/pkg/outbox"
	"github.com/SaifAzz/kiosk/pkg/outbox/payloads"
)

// Service records credit checkouts. Stock is reserved with conditional
// decrements inside the same transaction that books the purchase, so a basket
// either commits in full or leaves no trace.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*TransactionDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, onlyUnsettled bool) ([]TransactionDTO, error)
	ListForCountry(ctx context.Context, countryID uuid.UUID, settled *bool) ([]TransactionDTO, error)
}

// CheckoutInput is a member's basket. Unit prices always come from the
// catalog at checkout time, never from the client.
type CheckoutInput struct {
	UserID    uuid.UUID
	CountryID uuid.UUID
	Items     []CheckoutItem
}

// CheckoutItem is one requested basket line.
type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx          txRunner
	repo        *Repository
	productRepo *products.Repository
	userRepo    *users.Repository
	outbox      outboxPublisher
}

// NewService builds the transaction recorder.
func NewService(tx txRunner, repo *Repository, productRepo *products.Repository, userRepo *users.Repository, publisher outboxPublisher) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		productRepo: productRepo,
		userRepo:    userRepo,
		outbox:      publisher,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*TransactionDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.CountryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "basket cannot be empty")
	}

	merged, err := mergeItems(input.Items)
	if err != nil {
		return nil, err
	}

	var txn *models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		user, err := userRepo.FindByID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return err
		}
		if user.CountryID != input.CountryID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "user does not belong to this country")
		}
		if !user.IsActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
		}

		total := decimal.Zero
		items := make([]models.TransactionItem, 0, len(merged))
		for _, line := range merged {
			product, err := productRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				return err
			}
			if product.CountryID != input.CountryID {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}

			ok, err := productRepo.DecrementStock(ctx, product.ID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for %s", product.Name))
			}

			lineTotal := product.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, models.TransactionItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     product.SellingPrice,
			})
		}

		record := &models.Transaction{
			Total:     total,
			UserID:    user.ID,
			CountryID: input.CountryID,
			Items:     items,
		}
		if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}

		if err := userRepo.IncrementBalance(ctx, user.ID, total); err != nil {
			return err
		}

		if user.Email != nil && *user.Email != "" {
			event := outbox.DomainEvent{
				EventType:     enums.EventPaymentReminder,
				AggregateType: enums.AggregateTransaction,
				AggregateID:   record.ID,
				Actor:         &outbox.ActorRef{UserID: user.ID, CountryID: &input.CountryID, Role: string(user.Role)},
				Data: payloads.PaymentReminderEvent{
					TransactionID: record.ID,
					UserID:        user.ID,
					Email:         *user.Email,
					Total:         total,
					Balance:       user.Balance.Add(total),
					PurchasedAt:   time.Now().UTC(),
				},
				Version: 1,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		txn = record
		return nil
	})
	if err != nil {
		metrics.CheckoutsFailed.Inc()
		return nil, err
	}
	metrics.CheckoutsTotal.WithLabelValues(input.CountryID.String()).Inc()
	return FromModel(txn), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, onlyUnsettled bool) ([]TransactionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListByUser(ctx, userID, onlyUnsettled)
	if err != nil {
		return nil, err
	}
	return FromModels(rows), nil
}

func (s *service) ListForCountry(ctx context.Context, countryID uuid.UUID, settled *bool) ([]TransactionDTO, error) {
	if countryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}
	rows, err := s.repo.ListByCountry(ctx, countryID, settled)
	if err != nil {
		return nil, err
	}
	return FromModels(rows), nil
}

// mergeItems collapses duplicate product lines so a basket holds one
// conditional decrement per product.
func mergeItems(items []CheckoutItem) ([]CheckoutItem, error) {
	index := make(map[uuid.UUID]int, len(items))
	merged := make([]CheckoutItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}
