package settlements

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/internal/countries"
	"github.com/SaifAzz/kiosk/internal/pettycash"
	"github.com/SaifAzz/kiosk/internal/transactions"
	"github.com/SaifAzz/kiosk/internal/users"
	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
	"github.com/SaifAzz/kiosk/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:settlements_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Country{},
		&models.User{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.PettyCashEntry{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	fund, err := pettycash.NewService(testTxRunner{db: db}, countries.NewRepository(db), pettycash.NewEntryRepository(db))
	if err != nil {
		t.Fatalf("build petty cash service: %v", err)
	}
	svc, err := NewService(
		testTxRunner{db: db},
		users.NewRepository(db),
		transactions.NewRepository(db),
		fund,
		outbox.NewService(outbox.NewRepository(db), nil),
		nil,
	)
	if err != nil {
		t.Fatalf("build settlement service: %v", err)
	}
	return svc
}

func seedMember(t *testing.T, db *gorm.DB, pettyCash, balance string, txnTotals []string) (*models.Country, *models.User) {
	t.Helper()
	country := &models.Country{Name: "Iraq-" + uuid.NewString(), PettyCash: decimal.RequireFromString(pettyCash)}
	if err := db.Create(country).Error; err != nil {
		t.Fatalf("seed country: %v", err)
	}
	email := uuid.NewString() + "@kiosk.local"
	user := &models.User{
		Email:        &email,
		PhoneNumber:  "+964" + uuid.NewString()[:12],
		PasswordHash: "x",
		Role:         enums.UserRoleMember,
		Balance:      decimal.RequireFromString(balance),
		CountryID:    country.ID,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, total := range txnTotals {
		txn := &models.Transaction{
			Total:     decimal.RequireFromString(total),
			UserID:    user.ID,
			CountryID: country.ID,
		}
		if err := db.Create(txn).Error; err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}
	return country, user
}

func TestSettleMovesBalanceIntoPettyCash(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country, user := seedMember(t, db, "100", "10", []string{"4.50", "5.50"})
	ctx := context.Background()

	result, err := svc.Settle(ctx, SettleInput{UserID: user.ID, CountryID: country.ID})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !result.Amount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected settled amount 10, got %s", result.Amount)
	}
	if result.SettledTxns != 2 {
		t.Fatalf("expected 2 settled transactions, got %d", result.SettledTxns)
	}
	if !result.PettyCashAfter.Equal(decimal.RequireFromString("110")) {
		t.Fatalf("expected petty cash 110, got %s", result.PettyCashAfter)
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !reloaded.Balance.IsZero() {
		t.Fatalf("expected zeroed balance, got %s", reloaded.Balance)
	}

	var unsettled int64
	if err := db.Model(&models.Transaction{}).
		Where("user_id = ? AND settled = ?", user.ID, false).
		Count(&unsettled).Error; err != nil {
		t.Fatalf("count unsettled: %v", err)
	}
	if unsettled != 0 {
		t.Fatalf("expected all transactions settled, got %d unsettled", unsettled)
	}

	var events int64
	if err := db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventBalanceSettled).
		Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one settlement event, got %d", events)
	}
}

func TestSettleZeroBalanceIsNoOp(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country, user := seedMember(t, db, "100", "0", nil)
	ctx := context.Background()

	result, err := svc.Settle(ctx, SettleInput{UserID: user.ID, CountryID: country.ID})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !result.Amount.IsZero() {
		t.Fatalf("expected zero amount, got %s", result.Amount)
	}
	if result.SettledTxns != 0 {
		t.Fatalf("expected zero settled transactions, got %d", result.SettledTxns)
	}
	if !result.PettyCashAfter.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected petty cash untouched, got %s", result.PettyCashAfter)
	}

	var entries int64
	if err := db.Model(&models.PettyCashEntry{}).Count(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 0 {
		t.Fatalf("expected no audit entries, got %d", entries)
	}
}

func TestSettleTwiceSecondIsNoOp(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country, user := seedMember(t, db, "100", "10", []string{"10"})
	ctx := context.Background()

	if _, err := svc.Settle(ctx, SettleInput{UserID: user.ID, CountryID: country.ID}); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	result, err := svc.Settle(ctx, SettleInput{UserID: user.ID, CountryID: country.ID})
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if !result.Amount.IsZero() {
		t.Fatalf("expected second settle to be a no-op, got amount %s", result.Amount)
	}
	if !result.PettyCashAfter.Equal(decimal.RequireFromString("110")) {
		t.Fatalf("expected petty cash to stay 110, got %s", result.PettyCashAfter)
	}
}

func TestSettleNegativeBalanceRejected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country, user := seedMember(t, db, "100", "-5", nil)

	_, err := svc.Settle(context.Background(), SettleInput{UserID: user.ID, CountryID: country.ID})
	if err == nil {
		t.Fatal("expected negative balance to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSettleForeignCountryForbidden(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	_, user := seedMember(t, db, "100", "10", nil)

	other := &models.Country{Name: "Syria-" + uuid.NewString(), PettyCash: decimal.Zero}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("seed country: %v", err)
	}

	_, err := svc.Settle(context.Background(), SettleInput{UserID: user.ID, CountryID: other.ID})
	if err == nil {
		t.Fatal("expected foreign settle to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSettleUnknownUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country, _ := seedMember(t, db, "100", "0", nil)

	_, err := svc.Settle(context.Background(), SettleInput{UserID: uuid.New(), CountryID: country.ID})
	if err == nil {
		t.Fatal("expected unknown user to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSettleDivergedBalanceCreditsTransactionSum(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	country, user := seedMember(t, db, "100", "12", []string{"4.50", "5.50"})

	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "settlements-test", Level: logger.ParseLevel("warn"), Output: &logs})
	fund, err := pettycash.NewService(testTxRunner{db: db}, countries.NewRepository(db), pettycash.NewEntryRepository(db))
	if err != nil {
		t.Fatalf("build petty cash service: %v", err)
	}
	svc, err := NewService(
		testTxRunner{db: db},
		users.NewRepository(db),
		transactions.NewRepository(db),
		fund,
		outbox.NewService(outbox.NewRepository(db), nil),
		logg,
	)
	if err != nil {
		t.Fatalf("build settlement service: %v", err)
	}

	result, err := svc.Settle(context.Background(), SettleInput{UserID: user.ID, CountryID: country.ID})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !result.Amount.Equal(decimal.RequireFromString("12")) {
		t.Fatalf("expected cleared balance 12, got %s", result.Amount)
	}
	if !result.PettyCashAfter.Equal(decimal.RequireFromString("110")) {
		t.Fatalf("expected petty cash credited with the transaction sum, got %s", result.PettyCashAfter)
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !reloaded.Balance.IsZero() {
		t.Fatalf("expected zeroed balance, got %s", reloaded.Balance)
	}

	if !strings.Contains(logs.String(), "settlement.balance_divergence") {
		t.Fatalf("expected divergence warning, got %s", logs.String())
	}
}
