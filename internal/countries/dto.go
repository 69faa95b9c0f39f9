package countries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SaifAzz/kiosk/pkg/db/models"
)

// CountryDTO is the transport shape for a country record.
type CountryDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	PettyCash decimal.Decimal `json:"petty_cash"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func FromModel(c *models.Country) *CountryDTO {
	if c == nil {
		return nil
	}
	return &CountryDTO{
		ID:        c.ID,
		Name:      c.Name,
		PettyCash: c.PettyCash,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
