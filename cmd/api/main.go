package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/SaifAzz/kiosk/api/routes"
	"github.com/SaifAzz/kiosk/internal/auth"
	"github.com/SaifAzz/kiosk/internal/countries"
	"github.com/SaifAzz/kiosk/internal/pettycash"
	"github.com/SaifAzz/kiosk/internal/products"
	"github.com/SaifAzz/kiosk/internal/reports"
	"github.com/SaifAzz/kiosk/internal/settlements"
	"github.com/SaifAzz/kiosk/internal/transactions"
	"github.com/SaifAzz/kiosk/internal/users"
	"github.com/SaifAzz/kiosk/pkg/auth/session"
	"github.com/SaifAzz/kiosk/pkg/config"
	"github.com/SaifAzz/kiosk/pkg/db"
	"github.com/SaifAzz/kiosk/pkg/logger"
	"github.com/SaifAzz/kiosk/pkg/metrics"
	"github.com/SaifAzz/kiosk/pkg/migrate"
	"github.com/SaifAzz/kiosk/pkg/outbox"
	"github.com/SaifAzz/kiosk/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metrics.Register(prometheus.DefaultRegisterer)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	countryRepo := countries.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	txnRepo := transactions.NewRepository(gormDB)
	entryRepo := pettycash.NewEntryRepository(gormDB)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	otpEmitter, err := auth.NewOutboxOTPEmitter(dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create otp emitter", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		OTPEmitter:     otpEmitter,
		JWTConfig:      cfg.JWT,
		OTPConfig:      cfg.OTP,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	pettyCashService, err := pettycash.NewService(dbClient, countryRepo, entryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create petty cash service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(dbClient, productRepo, pettyCashService)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	transactionService, err := transactions.NewService(dbClient, txnRepo, productRepo, userRepo, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction service", err)
		os.Exit(1)
	}

	settlementService, err := settlements.NewService(dbClient, userRepo, txnRepo, pettyCashService, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	reportService, err := reports.NewService(gormDB, countryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Session:      sessionManager,
			Auth:         authService,
			Countries:    countryRepo,
			Users:        userRepo,
			Products:     productService,
			Transactions: transactionService,
			Settlements:  settlementService,
			PettyCash:    pettyCashService,
			Reports:      reportService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
