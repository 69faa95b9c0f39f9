package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SaifAzz/kiosk/pkg/db/models"
)

// ItemDTO is one purchased line in a transaction.
type ItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// TransactionDTO is the transport shape for a completed checkout.
type TransactionDTO struct {
	ID        uuid.UUID       `json:"id"`
	Total     decimal.Decimal `json:"total"`
	Settled   bool            `json:"settled"`
	UserID    uuid.UUID       `json:"user_id"`
	CountryID uuid.UUID       `json:"country_id"`
	Items     []ItemDTO       `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
}

func FromModel(t *models.Transaction) *TransactionDTO {
	if t == nil {
		return nil
	}
	items := make([]ItemDTO, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, ItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return &TransactionDTO{
		ID:        t.ID,
		Total:     t.Total,
		Settled:   t.Settled,
		UserID:    t.UserID,
		CountryID: t.CountryID,
		Items:     items,
		CreatedAt: t.CreatedAt,
	}
}

func FromModels(rows []models.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
