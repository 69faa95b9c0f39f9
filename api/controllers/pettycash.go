package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SaifAzz/kiosk/api/responses"
	"github.com/SaifAzz/kiosk/api/validators"
	"github.com/SaifAzz/kiosk/internal/pettycash"
	"github.com/SaifAzz/kiosk/pkg/enums"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

type pettyCashEntryView struct {
	ID           uuid.UUID                `json:"id"`
	Operation    enums.PettyCashOperation `json:"operation"`
	Amount       decimal.Decimal          `json:"amount"`
	BalanceAfter decimal.Decimal          `json:"balance_after"`
	Reason       string                   `json:"reason"`
	ActorID      *uuid.UUID               `json:"actor_id,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}

type pettyCashView struct {
	Balance decimal.Decimal      `json:"balance"`
	Entries []pettyCashEntryView `json:"entries"`
}

// AdminPettyCashGet returns the fund balance and the most recent entries for
// the admin's country.
func AdminPettyCashGet(svc pettycash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "petty cash service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), who.CountryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Entries(r.Context(), who.CountryID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view := pettyCashView{Balance: balance, Entries: make([]pettyCashEntryView, 0, len(entries))}
		for _, entry := range entries {
			view.Entries = append(view.Entries, pettyCashEntryView{
				ID:           entry.ID,
				Operation:    entry.Operation,
				Amount:       entry.Amount,
				BalanceAfter: entry.BalanceAfter,
				Reason:       entry.Reason,
				ActorID:      entry.ActorID,
				CreatedAt:    entry.CreatedAt,
			})
		}

		responses.WriteSuccess(w, view)
	}
}

type pettyCashAdjustRequest struct {
	Operation string          `json:"operation" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Reason    string          `json:"reason" validate:"required,min=1,max=500"`
}

// AdminPettyCashAdjust applies a manual add or subtract to the country fund.
func AdminPettyCashAdjust(svc pettycash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "petty cash service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body pettyCashAdjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		operation, err := enums.ParsePettyCashOperation(body.Operation)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "operation must be add or subtract"))
			return
		}

		country, err := svc.Adjust(r.Context(), pettycash.AdjustInput{
			CountryID: who.CountryID,
			Operation: operation,
			Amount:    body.Amount,
			Reason:    validators.SanitizeString(body.Reason, 500),
			ActorID:   &who.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"balance": country.PettyCash})
	}
}
