package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/SaifAzz/kiosk/pkg/config"
	"github.com/SaifAzz/kiosk/pkg/db"
	"github.com/SaifAzz/kiosk/pkg/enums"
	"github.com/SaifAzz/kiosk/pkg/logger"
	"github.com/SaifAzz/kiosk/pkg/mailer"
	"github.com/SaifAzz/kiosk/pkg/metrics"
	"github.com/SaifAzz/kiosk/pkg/migrate"
	"github.com/SaifAzz/kiosk/pkg/outbox"
	"github.com/SaifAzz/kiosk/pkg/outbox/idempotency"
	"github.com/SaifAzz/kiosk/pkg/outbox/payloads"
	"github.com/SaifAzz/kiosk/pkg/redis"
)

// processedTTL bounds how long delivery markers live in redis. Events older
// than this are safe to redeliver if the marker expired.
const processedTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "reminder-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reminder-worker",
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

	guard, err := idempotency.NewManager(redisClient, processedTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	var sender mailer.Sender
	if cfg.SMTP.Host != "" {
		sender, err = mailer.NewSMTPSender(cfg.SMTP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create smtp sender", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "smtp host not configured, logging mail instead of sending")
		sender = mailer.NewNoopSender(logg)
	}

	service, err := NewService(ServiceParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		DLQ:         outbox.NewDLQRepository(dbClient.DB()),
		Decoder:     buildDecoderRegistry(),
		Guard:       guard,
		Sender:      sender,
		BatchSize:   cfg.Reminder.BatchSize,
		PollEvery:   cfg.Reminder.PollInterval,
		MaxAttempts: cfg.Reminder.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "reminder-worker",
	})
	logg.Info(ctx, "starting reminder worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reminder worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reminder worker shutting down gracefully")
}

func buildDecoderRegistry() *outbox.DecoderRegistry {
	registry := outbox.NewDecoderRegistry()
	registry.Register(enums.EventPaymentReminder, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.PaymentReminderEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	registry.Register(enums.EventOTPRequested, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.OTPRequestedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	registry.Register(enums.EventBalanceSettled, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.BalanceSettledEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	})
	return registry
}
