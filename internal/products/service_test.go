package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/internal/countries"
	"github.com/SaifAzz/kiosk/internal/pettycash"
	"github.com/SaifAzz/kiosk/pkg/db/models"
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
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Country{}, &models.Product{}, &models.PettyCashEntry{}); err != nil {
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
	svc, err := NewService(testTxRunner{db: db}, NewRepository(db), fund)
	if err != nil {
		t.Fatalf("build product service: %v", err)
	}
	return svc
}

func seedCountry(t *testing.T, db *gorm.DB, pettyCash string) *models.Country {
	t.Helper()
	country := &models.Country{
		Name:      "Iraq-" + uuid.NewString(),
		PettyCash: decimal.RequireFromString(pettyCash),
	}
	if err := db.Create(country).Error; err != nil {
		t.Fatalf("seed country: %v", err)
	}
	return country
}

func TestCreateProductDebitsPettyCash(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country := seedCountry(t, db, "100")
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateProductInput{
		Name:         "Cola",
		PurchaseCost: decimal.RequireFromString("1.20"),
		SellingPrice: decimal.RequireFromString("1.50"),
		Stock:        10,
		CountryID:    country.ID,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if dto.Stock != 10 {
		t.Fatalf("expected stock 10, got %d", dto.Stock)
	}

	var reloaded models.Country
	if err := db.First(&reloaded, "id = ?", country.ID).Error; err != nil {
		t.Fatalf("reload country: %v", err)
	}
	if !reloaded.PettyCash.Equal(decimal.RequireFromString("88")) {
		t.Fatalf("expected petty cash 88, got %s", reloaded.PettyCash)
	}

	var entries []models.PettyCashEntry
	if err := db.Where("country_id = ?", country.ID).Find(&entries).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
}

func TestCreateProductRejectsOverdraw(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country := seedCountry(t, db, "5")
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductInput{
		Name:         "Chips",
		PurchaseCost: decimal.RequireFromString("2"),
		SellingPrice: decimal.RequireFromString("3"),
		Stock:        10,
		CountryID:    country.ID,
	})
	if err == nil {
		t.Fatal("expected overdraw to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int64
	if err := db.Model(&models.Product{}).Count(&count).Error; err != nil {
		t.Fatalf("count products: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to leave no products, got %d", count)
	}

	var reloaded models.Country
	if err := db.First(&reloaded, "id = ?", country.ID).Error; err != nil {
		t.Fatalf("reload country: %v", err)
	}
	if !reloaded.PettyCash.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected petty cash untouched, got %s", reloaded.PettyCash)
	}
}

func TestRestockUsesNewCostAndDebits(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	country := seedCountry(t, db, "50")
	ctx := context.Background()

	product := &models.Product{
		Name:         "Water",
		PurchaseCost: decimal.RequireFromString("0.50"),
		SellingPrice: decimal.RequireFromString("1"),
		Stock:        2,
		CountryID:    country.ID,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	newCost := decimal.RequireFromString("0.40")
	dto, err := svc.Restock(ctx, RestockInput{
		ProductID: product.ID,
		Quantity:  5,
		NewCost:   &newCost,
		CountryID: country.ID,
	})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if dto.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", dto.Stock)
	}
	if !dto.PurchaseCost.Equal(newCost) {
		t.Fatalf("expected purchase cost updated, got %s", dto.PurchaseCost)
	}

	var reloaded models.Country
	if err := db.First(&reloaded, "id = ?", country.ID).Error; err != nil {
		t.Fatalf("reload country: %v", err)
	}
	if !reloaded.PettyCash.Equal(decimal.RequireFromString("48")) {
		t.Fatalf("expected petty cash 48, got %s", reloaded.PettyCash)
	}
}

func TestRestockRejectsForeignCountry(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	home := seedCountry(t, db, "50")
	other := seedCountry(t, db, "50")
	ctx := context.Background()

	product := &models.Product{
		Name:         "Juice",
		PurchaseCost: decimal.RequireFromString("1"),
		SellingPrice: decimal.RequireFromString("2"),
		Stock:        1,
		CountryID:    home.ID,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	_, err := svc.Restock(ctx, RestockInput{
		ProductID: product.ID,
		Quantity:  1,
		CountryID: other.ID,
	})
	if err == nil {
		t.Fatal("expected cross-country restock to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}
