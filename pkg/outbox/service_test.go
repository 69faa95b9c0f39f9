package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/pkg/db/models"
	"github.com/SaifAzz/kiosk/pkg/enums"
)

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	db := newOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	actorID := uuid.New()
	countryID := uuid.New()
	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventPaymentReminder,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   aggregateID,
		Actor:         &ActorRef{UserID: actorID, CountryID: &countryID, Role: "member"},
		Data:          map[string]string{"email": "member@kiosk.local"},
		Version:       1,
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	var stored models.OutboxEvent
	if err := db.First(&stored, "aggregate_id = ?", aggregateID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(stored.Payload, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Version != 1 {
		t.Fatalf("expected envelope version 1, got %d", envelope.Version)
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		t.Fatalf("expected uuid event id, got %q", envelope.EventID)
	}
	if envelope.Actor == nil || envelope.Actor.UserID != actorID {
		t.Fatalf("expected actor carried through envelope")
	}

	var data map[string]string
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data["email"] != "member@kiosk.local" {
		t.Fatalf("unexpected data payload: %v", data)
	}
}

func TestEmitRequiresTransaction(t *testing.T) {
	db := newOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOTPRequested})
	if err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestEmitIfNotExistsDeduplicatesPending(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventBalanceSettled,
		AggregateType: enums.AggregateSettlement,
		AggregateID:   aggregateID,
		Data:          map[string]string{"k": "v"},
		Version:       1,
	}

	for i := 0; i < 2; i++ {
		if err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}); err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", aggregateID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected deduplicated emit, got %d rows", count)
	}
}

func TestEmitIfNotExistsReEmitsAfterPublish(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventBalanceSettled,
		AggregateType: enums.AggregateSettlement,
		AggregateID:   aggregateID,
		Data:          map[string]string{"k": "v"},
		Version:       1,
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}); err != nil {
		t.Fatalf("first emit: %v", err)
	}

	var first models.OutboxEvent
	if err := db.First(&first, "aggregate_id = ?", aggregateID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := repo.MarkPublished(first.ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}); err != nil {
		t.Fatalf("second emit: %v", err)
	}

	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", aggregateID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected a fresh event after the first was published, got %d", count)
	}
}
