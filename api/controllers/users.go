package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SaifAzz/kiosk/api/responses"
	"github.com/SaifAzz/kiosk/internal/users"
	"github.com/SaifAzz/kiosk/pkg/enums"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

// userView never carries password hashes or OTP material.
type userView struct {
	ID          uuid.UUID       `json:"id"`
	Email       *string         `json:"email,omitempty"`
	PhoneNumber string          `json:"phone_number"`
	Role        enums.UserRole  `json:"role"`
	Balance     decimal.Decimal `json:"balance"`
	IsActive    bool            `json:"is_active"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AdminUserList returns the accounts in the admin's country, optionally
// filtered by role.
func AdminUserList(repo *users.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user repository unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var role enums.UserRole
		if raw := r.URL.Query().Get("role"); raw != "" {
			parsed, err := enums.ParseUserRole(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "role must be member or admin"))
				return
			}
			role = parsed
		}

		rows, err := repo.ListByCountry(r.Context(), who.CountryID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users"))
			return
		}

		views := make([]userView, 0, len(rows))
		for _, row := range rows {
			views = append(views, userView{
				ID:          row.ID,
				Email:       row.Email,
				PhoneNumber: row.PhoneNumber,
				Role:        row.Role,
				Balance:     row.Balance,
				IsActive:    row.IsActive,
				LastLoginAt: row.LastLoginAt,
				CreatedAt:   row.CreatedAt,
			})
		}

		responses.WriteSuccess(w, views)
	}
}
