package transactions

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/internal/products"
	"github.com/SaifAzz/kiosk/internal/users"
	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/outbox"
)

type testTxRunner struct {
	mu sync.Mutex
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:transactions_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Country{},
		&models.User{},
		&models.Product{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		&testTxRunner{db: db},
		NewRepository(db),
		products.NewRepository(db),
		users.NewRepository(db),
		outbox.NewService(outbox.NewRepository(db), nil),
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

type fixture struct {
	country *models.Country
	user    *models.User
	product *models.Product
}

func seedFixture(t *testing.T, db *gorm.DB, stock int, price string) fixture {
	t.Helper()
	country := &models.Country{Name: "Iraq-" + uuid.NewString(), PettyCash: decimal.RequireFromString("1000")}
	if err := db.Create(country).Error; err != nil {
		t.Fatalf("seed country: %v", err)
	}
	email := uuid.NewString() + "@kiosk.local"
	user := &models.User{
		Email:        &email,
		PhoneNumber:  "+964" + uuid.NewString()[:12],
		PasswordHash: "x",
		Role:         enums.UserRoleMember,
		CountryID:    country.ID,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	product := &models.Product{
		Name:         "Cola",
		PurchaseCost: decimal.RequireFromString("1"),
		SellingPrice: decimal.RequireFromString(price),
		Stock:        stock,
		CountryID:    country.ID,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return fixture{country: country, user: user, product: product}
}

func TestCheckoutDecrementsStockAndBooksTotal(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	fx := seedFixture(t, db, 5, "1.50")
	ctx := context.Background()

	dto, err := svc.Checkout(ctx, CheckoutInput{
		UserID:    fx.user.ID,
		CountryID: fx.country.ID,
		Items:     []CheckoutItem{{ProductID: fx.product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !dto.Total.Equal(decimal.RequireFromString("4.50")) {
		t.Fatalf("expected total 4.50, got %s", dto.Total)
	}
	if len(dto.Items) != 1 || dto.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items: %+v", dto.Items)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", fx.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", product.Stock)
	}

	var user models.User
	if err := db.First(&user, "id = ?", fx.user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !user.Balance.Equal(decimal.RequireFromString("4.50")) {
		t.Fatalf("expected balance 4.50, got %s", user.Balance)
	}

	var events int64
	if err := db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPaymentReminder).
		Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one payment reminder event, got %d", events)
	}
}

func TestCheckoutCapturesPriceAtPurchaseTime(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	fx := seedFixture(t, db, 10, "2.25")
	ctx := context.Background()

	dto, err := svc.Checkout(ctx, CheckoutInput{
		UserID:    fx.user.ID,
		CountryID: fx.country.ID,
		Items:     []CheckoutItem{{ProductID: fx.product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if err := db.Model(&models.Product{}).
		Where("id = ?", fx.product.ID).
		UpdateColumn("selling_price", decimal.RequireFromString("9.99")).Error; err != nil {
		t.Fatalf("reprice product: %v", err)
	}

	var item models.TransactionItem
	if err := db.First(&item, "transaction_id = ?", dto.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !item.Price.Equal(decimal.RequireFromString("2.25")) {
		t.Fatalf("expected captured price 2.25, got %s", item.Price)
	}
}

func TestCheckoutInsufficientStockLeavesNoTrace(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	fx := seedFixture(t, db, 2, "1.50")
	ctx := context.Background()

	second := &models.Product{
		Name:         "Chips",
		PurchaseCost: decimal.RequireFromString("1"),
		SellingPrice: decimal.RequireFromString("3"),
		Stock:        10,
		CountryID:    fx.country.ID,
	}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("seed second product: %v", err)
	}

	_, err := svc.Checkout(ctx, CheckoutInput{
		UserID:    fx.user.ID,
		CountryID: fx.country.ID,
		Items: []CheckoutItem{
			{ProductID: second.ID, Quantity: 1},
			{ProductID: fx.product.ID, Quantity: 3},
		},
	})
	if err == nil {
		t.Fatal("expected insufficient stock to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	var txns int64
	if err := db.Model(&models.Transaction{}).Count(&txns).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if txns != 0 {
		t.Fatalf("expected no transactions, got %d", txns)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", second.ID).Error; err != nil {
		t.Fatalf("reload second product: %v", err)
	}
	if reloaded.Stock != 10 {
		t.Fatalf("expected rollback to restore stock 10, got %d", reloaded.Stock)
	}

	var user models.User
	if err := db.First(&user, "id = ?", fx.user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !user.Balance.IsZero() {
		t.Fatalf("expected balance untouched, got %s", user.Balance)
	}
}

func TestCheckoutMergesDuplicateLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	fx := seedFixture(t, db, 5, "2")
	ctx := context.Background()

	dto, err := svc.Checkout(ctx, CheckoutInput{
		UserID:    fx.user.ID,
		CountryID: fx.country.ID,
		Items: []CheckoutItem{
			{ProductID: fx.product.ID, Quantity: 2},
			{ProductID: fx.product.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(dto.Items))
	}
	if dto.Items[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", dto.Items[0].Quantity)
	}
	if !dto.Total.Equal(decimal.RequireFromString("6")) {
		t.Fatalf("expected total 6, got %s", dto.Total)
	}
}

func TestCheckoutLastUnitSingleWinner(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	fx := seedFixture(t, db, 1, "1.50")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), CheckoutInput{
				UserID:    fx.user.ID,
				CountryID: fx.country.ID,
				Items:     []CheckoutItem{{ProductID: fx.product.ID, Quantity: 1}},
			})
			results[slot] = err
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", fx.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", product.Stock)
	}
}

func TestCheckoutRejectsForeignUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	fx := seedFixture(t, db, 5, "1")

	other := &models.Country{Name: "Syria-" + uuid.NewString(), PettyCash: decimal.Zero}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("seed country: %v", err)
	}

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    fx.user.ID,
		CountryID: other.ID,
		Items:     []CheckoutItem{{ProductID: fx.product.ID, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected cross-country checkout to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckoutRejectsDisabledAccount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	fx := seedFixture(t, db, 5, "1")

	if err := db.Model(&models.User{}).
		Where("id = ?", fx.user.ID).
		UpdateColumn("is_active", false).Error; err != nil {
		t.Fatalf("disable user: %v", err)
	}

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    fx.user.ID,
		CountryID: fx.country.ID,
		Items:     []CheckoutItem{{ProductID: fx.product.ID, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected disabled account to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListForUserUnsettledOnly(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	fx := seedFixture(t, db, 10, "1")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Checkout(ctx, CheckoutInput{
			UserID:    fx.user.ID,
			CountryID: fx.country.ID,
			Items:     []CheckoutItem{{ProductID: fx.product.ID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
	}
	var first models.Transaction
	if err := db.First(&first, "user_id = ?", fx.user.ID).Error; err != nil {
		t.Fatalf("load first transaction: %v", err)
	}
	if err := db.Model(&models.Transaction{}).
		Where("id = ?", first.ID).
		UpdateColumn("settled", true).Error; err != nil {
		t.Fatalf("settle one: %v", err)
	}

	rows, err := svc.ListForUser(ctx, fx.user.ID, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 unsettled transaction, got %d", len(rows))
	}
	if rows[0].Settled {
		t.Fatal("expected unsettled row")
	}
}
