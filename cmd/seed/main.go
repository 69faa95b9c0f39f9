package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/config"
	"github.com/SaifAzz/kiosk/pkg/db"
	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
	"github.com/SaifAzz/kiosk/pkg/logger"
	"github.com/SaifAzz/kiosk/pkg/migrate"
	"github.com/SaifAzz/kiosk/pkg/security"
)

type seedUser struct {
	email    *string
	phone    string
	password string
	role     enums.UserRole
}

type seedProduct struct {
	name         string
	image        string
	purchaseCost string
	sellingPrice string
	stock        int
}

var sampleProducts = []seedProduct{
	{"Snickers", "/products/snickers.jpg", "1.00", "1.50", 50},
	{"Chips", "/products/chips.jpg", "0.75", "1.00", 75},
	{"Water", "/products/water.jpg", "0.50", "0.75", 100},
	{"Cola", "/products/cola.jpg", "0.80", "1.25", 60},
	{"Sandwich", "/products/sandwich.jpg", "2.00", "3.00", 30},
	{"Coffee", "/products/coffee.jpg", "0.60", "1.00", 80},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.App.IsProd() {
		logg.Error(context.Background(), "refusing to seed a production database", errors.New("env is prod"))
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)
	if err := run(ctx, cfg, dbClient); err != nil {
		logg.Error(ctx, "seeding failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "seed data inserted")
}

func run(ctx context.Context, cfg *config.Config, dbClient *db.Client) error {
	adminHash, err := security.HashPassword("admin123", cfg.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	userHash, err := security.HashPassword("user123", cfg.Password)
	if err != nil {
		return fmt.Errorf("hash user password: %w", err)
	}

	countryUsers := map[string][]seedUser{
		"Iraq": {
			{email: strPtr("admin.iraq@kiosk.local"), phone: "+9640000000001", password: adminHash, role: enums.UserRoleAdmin},
			{email: strPtr("hasan@kiosk.local"), phone: "+9641234567890", password: userHash, role: enums.UserRoleMember},
			{phone: "+9641234567891", password: userHash, role: enums.UserRoleMember},
		},
		"Syria": {
			{email: strPtr("admin.syria@kiosk.local"), phone: "+9630000000001", password: adminHash, role: enums.UserRoleAdmin},
			{email: strPtr("amira@kiosk.local"), phone: "+9631234567890", password: userHash, role: enums.UserRoleMember},
			{phone: "+9631234567891", password: userHash, role: enums.UserRoleMember},
		},
	}

	return dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		for _, name := range []string{"Iraq", "Syria"} {
			country, err := upsertCountry(tx, name)
			if err != nil {
				return err
			}
			for _, u := range countryUsers[name] {
				if err := upsertUser(tx, country.ID, u); err != nil {
					return err
				}
			}
			for _, p := range sampleProducts {
				if err := upsertProduct(tx, country.ID, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func upsertCountry(tx *gorm.DB, name string) (*models.Country, error) {
	var country models.Country
	err := tx.Where("name = ?", name).First(&country).Error
	if err == nil {
		return &country, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	country = models.Country{
		Name:      name,
		PettyCash: decimal.NewFromInt(1000),
	}
	if err := tx.Create(&country).Error; err != nil {
		return nil, fmt.Errorf("create country %s: %w", name, err)
	}
	return &country, nil
}

func upsertUser(tx *gorm.DB, countryID uuid.UUID, u seedUser) error {
	var existing models.User
	err := tx.Where("phone_number = ?", u.phone).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	user := models.User{
		Email:        u.email,
		PhoneNumber:  u.phone,
		PasswordHash: u.password,
		Role:         u.role,
		Balance:      decimal.Zero,
		CountryID:    countryID,
		IsActive:     true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return fmt.Errorf("create user %s: %w", u.phone, err)
	}
	return nil
}

func upsertProduct(tx *gorm.DB, countryID uuid.UUID, p seedProduct) error {
	var existing models.Product
	err := tx.Where("country_id = ? AND name = ?", countryID, p.name).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	product := models.Product{
		Name:         p.name,
		Image:        p.image,
		PurchaseCost: decimal.RequireFromString(p.purchaseCost),
		SellingPrice: decimal.RequireFromString(p.sellingPrice),
		Stock:        p.stock,
		CountryID:    countryID,
	}
	if err := tx.Create(&product).Error; err != nil {
		return fmt.Errorf("create product %s: %w", p.name, err)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
