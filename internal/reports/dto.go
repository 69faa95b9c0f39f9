package reports

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CountryInfo aggregates the admin dashboard counters for one country.
type CountryInfo struct {
	CountryID        uuid.UUID       `json:"country_id"`
	CountryName      string          `json:"country_name"`
	PettyCash        decimal.Decimal `json:"petty_cash"`
	MemberCount      int64           `json:"member_count"`
	ProductCount     int64           `json:"product_count"`
	TransactionCount int64           `json:"transaction_count"`
	UnsettledCount   int64           `json:"unsettled_count"`
	UnsettledTotal   decimal.Decimal `json:"unsettled_total"`
}

// PurchaseRow summarizes one member's purchase history.
type PurchaseRow struct {
	UserID      uuid.UUID       `json:"user_id"`
	PhoneNumber string          `json:"phone_number"`
	Email       *string         `json:"email,omitempty"`
	TxnCount    int64           `json:"txn_count"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	Balance     decimal.Decimal `json:"balance"`
}

// BalanceRow lists one member's outstanding balance.
type BalanceRow struct {
	UserID      uuid.UUID       `json:"user_id"`
	PhoneNumber string          `json:"phone_number"`
	Email       *string         `json:"email,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
}
