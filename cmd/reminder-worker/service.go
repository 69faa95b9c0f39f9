package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
	"github.com/SaifAzz/kiosk/pkg/logger"
	"github.com/SaifAzz/kiosk/pkg/mailer"
	"github.com/SaifAzz/kiosk/pkg/metrics"
	"github.com/SaifAzz/kiosk/pkg/outbox"
	"github.com/SaifAzz/kiosk/pkg/outbox/payloads"
)

const (
	consumerName = "reminder-worker"

	defaultBatchSize   = 50
	defaultPollEvery   = 5 * time.Second
	defaultMaxAttempts = 10
	maxBackoff         = 2 * time.Minute
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type ServiceParams struct {
	Logger      *logger.Logger
	DB          dbClient
	Repository  outboxRepository
	DLQ         dlqRepository
	Decoder     eventDecoder
	Guard       processedGuard
	Sender      mailer.Sender
	BatchSize   int
	PollEvery   time.Duration
	MaxAttempts int
}

// Service drains the outbox and turns domain events into member emails.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	dlq         dlqRepository
	decoder     eventDecoder
	guard       processedGuard
	sender      mailer.Sender
	batchSize   int
	pollEvery   time.Duration
	maxAttempts int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.DLQ == nil {
		return nil, errors.New("dlq repository is required")
	}
	if params.Decoder == nil {
		return nil, errors.New("event decoder is required")
	}
	if params.Guard == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if params.Sender == nil {
		return nil, errors.New("mail sender is required")
	}

	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := params.PollEvery
	if poll <= 0 {
		poll = defaultPollEvery
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		dlq:         params.DLQ,
		decoder:     params.Decoder,
		guard:       params.Guard,
		sender:      params.Sender,
		batchSize:   batch,
		pollEvery:   poll,
		maxAttempts: maxAttempts,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	backoff := s.pollEvery
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "reminder worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "reminder worker batch error", err)
			backoff = nextBackoff(backoff, s.pollEvery, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = s.pollEvery
		if processed {
			continue
		}
		if err := s.sleep(ctx, withJitter(s.pollEvery)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	events, err := s.repo.FetchUnpublished(s.batchSize, s.maxAttempts)
	if err != nil {
		return false, err
	}
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		if err := s.processEvent(ctx, event); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (s *Service) processEvent(ctx context.Context, event models.OutboxEvent) error {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	logCtx := s.logg.WithFields(ctx, fields)

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return s.retire(ctx, event, enums.DLQReasonNonRetryable, fmt.Errorf("decode envelope: %w", err))
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return s.retire(ctx, event, enums.DLQReasonNonRetryable, fmt.Errorf("invalid event id %q: %w", envelope.EventID, err))
	}

	decoded, err := s.decoder.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return s.retire(ctx, event, enums.DLQReasonNonRetryable, fmt.Errorf("decode payload: %w", err))
	}

	msg, deliverable, err := messageFor(decoded)
	if err != nil {
		return s.retire(ctx, event, enums.DLQReasonNonRetryable, err)
	}
	if !deliverable {
		// Nothing to send, most often a settlement for a phone-only user.
		if err := s.repo.MarkPublished(event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox event retired without delivery")
		return nil
	}

	seen, err := s.guard.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		return s.handleFailure(ctx, event, fmt.Errorf("idempotency check: %w", err))
	}
	if seen {
		if err := s.repo.MarkPublished(event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox event already delivered, skipping")
		return nil
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		// Clear the processed marker so the retry is allowed through.
		if delErr := s.guard.Delete(ctx, consumerName, eventID); delErr != nil {
			s.logg.Error(logCtx, "failed to release idempotency marker", delErr)
		}
		return s.handleFailure(ctx, event, fmt.Errorf("send mail: %w", err))
	}

	if err := s.repo.MarkPublished(event.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	metrics.RemindersSent.Inc()
	s.logg.Info(logCtx, "reminder email delivered")
	return nil
}

func (s *Service) handleFailure(ctx context.Context, event models.OutboxEvent, cause error) error {
	nextAttempt := event.AttemptCount + 1
	if nextAttempt >= s.maxAttempts {
		return s.retire(ctx, event, enums.DLQReasonMaxAttempts, fmt.Errorf("max delivery attempts reached: %w", cause))
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"attempt_count": nextAttempt,
		"error":         cause.Error(),
	})
	s.logg.Warn(logCtx, "reminder delivery failed, will retry")
	if err := s.repo.MarkFailed(event.ID, cause); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) retire(ctx context.Context, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":    event.ID.String(),
		"event_type":   event.EventType,
		"error_reason": reason,
		"error":        cause.Error(),
	})
	s.logg.Warn(logCtx, "outbox event will not be retried")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		return nil
	})
}

// messageFor maps a decoded event to an email. The second return is false
// when the event carries no deliverable address.
func messageFor(decoded interface{}) (mailer.Message, bool, error) {
	switch evt := decoded.(type) {
	case payloads.PaymentReminderEvent:
		if evt.Email == "" {
			return mailer.Message{}, false, nil
		}
		return mailer.PaymentReminderMessage(evt), true, nil
	case payloads.OTPRequestedEvent:
		if evt.Email == "" {
			return mailer.Message{}, false, nil
		}
		return mailer.OTPMessage(evt), true, nil
	case payloads.BalanceSettledEvent:
		if evt.Email == "" {
			return mailer.Message{}, false, nil
		}
		return mailer.BalanceSettledMessage(evt), true, nil
	default:
		return mailer.Message{}, false, fmt.Errorf("no mail template for payload %T", decoded)
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
