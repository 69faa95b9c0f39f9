package pettycash

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/internal/countries"
	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pettycash_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Country{}, &models.PettyCashEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(testTxRunner{db: db}, countries.NewRepository(db), NewEntryRepository(db))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedCountry(t *testing.T, db *gorm.DB, pettyCash string) *models.Country {
	t.Helper()
	country := &models.Country{
		Name:      "Syria-" + uuid.NewString(),
		PettyCash: decimal.RequireFromString(pettyCash),
	}
	if err := db.Create(country).Error; err != nil {
		t.Fatalf("seed country: %v", err)
	}
	return country
}

func TestAdjustAddAndSubtract(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country := seedCountry(t, db, "100")
	ctx := context.Background()

	updated, err := svc.Adjust(ctx, AdjustInput{
		CountryID: country.ID,
		Operation: enums.PettyCashOperationAdd,
		Amount:    decimal.RequireFromString("25.50"),
		Reason:    "cash deposit",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !updated.PettyCash.Equal(decimal.RequireFromString("125.50")) {
		t.Fatalf("expected 125.50 after add, got %s", updated.PettyCash)
	}

	updated, err = svc.Adjust(ctx, AdjustInput{
		CountryID: country.ID,
		Operation: enums.PettyCashOperationSubtract,
		Amount:    decimal.RequireFromString("25.50"),
		Reason:    "supplier payment",
	})
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if !updated.PettyCash.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected 100 after subtract, got %s", updated.PettyCash)
	}

	entries, err := svc.Entries(ctx, country.ID, 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
}

func TestAdjustSubtractRejectsOverdraw(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country := seedCountry(t, db, "10")
	ctx := context.Background()

	_, err := svc.Adjust(ctx, AdjustInput{
		CountryID: country.ID,
		Operation: enums.PettyCashOperationSubtract,
		Amount:    decimal.RequireFromString("10.01"),
		Reason:    "too much",
	})
	if err == nil {
		t.Fatal("expected overdraw to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := svc.Balance(ctx, country.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected balance untouched, got %s", balance)
	}

	var count int64
	if err := db.Model(&models.PettyCashEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no audit entries on failed debit, got %d", count)
	}
}

func TestAdjustRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country := seedCountry(t, db, "10")

	_, err := svc.Adjust(context.Background(), AdjustInput{
		CountryID: country.ID,
		Operation: enums.PettyCashOperationAdd,
		Amount:    decimal.Zero,
		Reason:    "noop",
	})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdjustUnknownCountry(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Adjust(context.Background(), AdjustInput{
		CountryID: uuid.New(),
		Operation: enums.PettyCashOperationAdd,
		Amount:    decimal.RequireFromString("1"),
		Reason:    "nowhere",
	})
	if err == nil {
		t.Fatal("expected unknown country to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEntriesNewestFirst(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country := seedCountry(t, db, "0")
	ctx := context.Background()

	for _, amount := range []string{"1", "2", "3"} {
		if _, err := svc.Adjust(ctx, AdjustInput{
			CountryID: country.ID,
			Operation: enums.PettyCashOperationAdd,
			Amount:    decimal.RequireFromString(amount),
			Reason:    "deposit " + amount,
		}); err != nil {
			t.Fatalf("adjust %s: %v", amount, err)
		}
	}

	entries, err := svc.Entries(ctx, country.ID, 2)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(entries))
	}
	if !entries[0].BalanceAfter.Equal(decimal.RequireFromString("6")) {
		t.Fatalf("expected newest entry first, got balance %s", entries[0].BalanceAfter)
	}
}
