package auth

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
	"github.com/SaifAzz/kiosk/pkg/outbox"
	"github.com/SaifAzz/kiosk/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxOTPEmitter queues login codes through the outbox so delivery shares
// the worker's retry and DLQ handling.
type OutboxOTPEmitter struct {
	tx     txRunner
	outbox outboxPublisher
}

// NewOutboxOTPEmitter builds the default OTP emitter.
func NewOutboxOTPEmitter(tx txRunner, publisher outboxPublisher) (*OutboxOTPEmitter, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &OutboxOTPEmitter{tx: tx, outbox: publisher}, nil
}

func (e *OutboxOTPEmitter) EmitOTP(ctx context.Context, user *models.User, code string, expiresAt time.Time) error {
	if user == nil || user.Email == nil || *user.Email == "" {
		return fmt.Errorf("user with email required")
	}
	return e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventOTPRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, CountryID: &user.CountryID, Role: string(user.Role)},
			Data: payloads.OTPRequestedEvent{
				UserID:    user.ID,
				Email:     *user.Email,
				Code:      code,
				ExpiresAt: expiresAt,
			},
			Version: 1,
		}
		return e.outbox.Emit(ctx, tx, event)
	})
}
