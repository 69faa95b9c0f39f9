package settlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/internal/pettycash"
	"github.com/SaifAzz/kiosk/internal/transactions"
	"github.com/SaifAzz/kiosk/internal/users"
	"github.com/SaifAzz/kiosk/pkg/enums"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
	"github.com/SaifAzz/kiosk/pkg/metrics"
	"github.com/SaifAzz/kiosk/pkg/outbox"
	"github.com/SaifAzz/kiosk/pkg/outbox/payloads"
)

// Result reports what a settlement changed. Settling a member with no
// outstanding balance is a deterministic no-op with zero amounts.
type Result struct {
	UserID         uuid.UUID       `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	SettledTxns    int64           `json:"settled_txns"`
	PettyCashAfter decimal.Decimal `json:"petty_cash_after"`
	SettledAt      time.Time       `json:"settled_at"`
}

// Service clears a member's credit balance into the country's petty cash.
type Service interface {
	Settle(ctx context.Context, input SettleInput) (*Result, error)
}

// SettleInput identifies the member being settled and the acting admin.
type SettleInput struct {
	UserID    uuid.UUID
	CountryID uuid.UUID
	ActorID   *uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx       txRunner
	userRepo *users.Repository
	txnRepo  *transactions.Repository
	fund     pettycash.Service
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewService builds the settlement processor. The logger is optional and only
// used to flag balance divergence.
func NewService(tx txRunner, userRepo *users.Repository, txnRepo *transactions.Repository, fund pettycash.Service, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if txnRepo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if fund == nil {
		return nil, fmt.Errorf("petty cash service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, userRepo: userRepo, txnRepo: txnRepo, fund: fund, outbox: publisher, logg: logg}, nil
}

func (s *service) Settle(ctx context.Context, input SettleInput) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.CountryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country id required")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
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

		now := time.Now().UTC()
		amount := user.Balance

		if amount.Sign() == 0 {
			result = &Result{UserID: user.ID, Amount: decimal.Zero, SettledAt: now}
			after, err := s.fund.BalanceTx(ctx, tx, input.CountryID)
			if err != nil {
				return err
			}
			result.PettyCashAfter = after
			return nil
		}
		if amount.Sign() < 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "balance is negative, manual correction required")
		}

		txnRepo := s.txnRepo.WithTx(tx)

		// The user's balance and the sum of their unsettled transactions are
		// kept in lockstep by checkout. Petty cash is credited with the
		// transaction sum; a mismatch means an earlier write went wrong.
		unsettled, err := txnRepo.ListByUser(ctx, user.ID, true)
		if err != nil {
			return err
		}
		credit := decimal.Zero
		for _, txn := range unsettled {
			credit = credit.Add(txn.Total)
		}
		if !credit.Equal(amount) && s.logg != nil {
			wctx := s.logg.WithFields(ctx, map[string]any{
				"user_id":         user.ID.String(),
				"balance":         amount.String(),
				"transaction_sum": credit.String(),
			})
			s.logg.Warn(wctx, "settlement.balance_divergence")
		}

		settled, err := txnRepo.MarkSettledByUser(ctx, user.ID)
		if err != nil {
			return err
		}

		ok, err := userRepo.ZeroBalance(ctx, user.ID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "balance changed during settlement, retry")
		}

		reason := fmt.Sprintf("settlement: %s", user.PhoneNumber)
		if err := s.fund.CreditTx(ctx, tx, input.CountryID, credit, reason, input.ActorID); err != nil {
			return err
		}

		email := ""
		if user.Email != nil {
			email = *user.Email
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventBalanceSettled,
			AggregateType: enums.AggregateSettlement,
			AggregateID:   user.ID,
			Actor:         actorRef(input.ActorID, input.CountryID),
			Data: payloads.BalanceSettledEvent{
				UserID:      user.ID,
				CountryID:   input.CountryID,
				Email:       email,
				Amount:      amount,
				SettledTxns: int(settled),
				SettledAt:   now,
			},
			Version: 1,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}

		after, err := s.fund.BalanceTx(ctx, tx, input.CountryID)
		if err != nil {
			return err
		}

		result = &Result{
			UserID:         user.ID,
			Amount:         amount,
			SettledTxns:    settled,
			PettyCashAfter: after,
			SettledAt:      now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Amount.Sign() > 0 {
		metrics.SettlementsTotal.WithLabelValues(input.CountryID.String()).Inc()
	}
	return result, nil
}

func actorRef(actorID *uuid.UUID, countryID uuid.UUID) *outbox.ActorRef {
	if actorID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actorID, CountryID: &countryID, Role: string(enums.UserRoleAdmin)}
}
