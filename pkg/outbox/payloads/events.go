package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentReminderEvent asks the mail worker to notify a member about a new
// credit purchase and their outstanding balance.
type PaymentReminderEvent struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Email         string          `json:"email"`
	Total         decimal.Decimal `json:"total"`
	Balance       decimal.Decimal `json:"balance"`
	PurchasedAt   time.Time       `json:"purchased_at"`
}

// OTPRequestedEvent carries a freshly issued login code for delivery.
type OTPRequestedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BalanceSettledEvent records that an admin cleared a member's balance.
type BalanceSettledEvent struct {
	UserID      uuid.UUID       `json:"user_id"`
	CountryID   uuid.UUID       `json:"country_id"`
	Email       string          `json:"email,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	SettledTxns int             `json:"settled_txns"`
	SettledAt   time.Time       `json:"settled_at"`
}
