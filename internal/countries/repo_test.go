package countries

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:countries_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Country{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB, pettyCash string) *models.Country {
	t.Helper()
	country := &models.Country{Name: "Iraq-" + uuid.NewString(), PettyCash: decimal.RequireFromString(pettyCash)}
	if err := db.Create(country).Error; err != nil {
		t.Fatalf("seed country: %v", err)
	}
	return country
}

func TestDebitPettyCashGuardsFloor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	country := seed(t, db, "10")
	ctx := context.Background()

	ok, err := repo.DebitPettyCash(ctx, country.ID, decimal.RequireFromString("7.25"))
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !ok {
		t.Fatal("expected affordable debit to succeed")
	}

	ok, err = repo.DebitPettyCash(ctx, country.ID, decimal.RequireFromString("2.76"))
	if err != nil {
		t.Fatalf("overdraw attempt: %v", err)
	}
	if ok {
		t.Fatal("expected overdraw to be rejected")
	}

	reloaded, err := repo.FindByID(ctx, country.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.PettyCash.Equal(decimal.RequireFromString("2.75")) {
		t.Fatalf("expected petty cash 2.75, got %s", reloaded.PettyCash)
	}
}

func TestDebitExactBalanceAllowed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	country := seed(t, db, "5")
	ctx := context.Background()

	ok, err := repo.DebitPettyCash(ctx, country.ID, decimal.RequireFromString("5"))
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !ok {
		t.Fatal("expected debit down to zero to succeed")
	}

	reloaded, err := repo.FindByID(ctx, country.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.PettyCash.IsZero() {
		t.Fatalf("expected zero, got %s", reloaded.PettyCash)
	}
}

func TestCreditPettyCash(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	country := seed(t, db, "1.25")
	ctx := context.Background()

	if err := repo.CreditPettyCash(ctx, country.ID, decimal.RequireFromString("3.75")); err != nil {
		t.Fatalf("credit: %v", err)
	}

	reloaded, err := repo.FindByID(ctx, country.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.PettyCash.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected 5, got %s", reloaded.PettyCash)
	}

	err = repo.CreditPettyCash(ctx, uuid.New(), decimal.RequireFromString("1"))
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	country := seed(t, db, "10")

	if _, err := repo.DebitPettyCash(context.Background(), country.ID, decimal.Zero); err == nil {
		t.Fatal("expected zero amount to be rejected")
	}
}
