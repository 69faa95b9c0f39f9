package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/SaifAzz/kiosk/api/responses"
	"github.com/SaifAzz/kiosk/api/validators"
	"github.com/SaifAzz/kiosk/internal/settlements"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

type settleRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// AdminSettle collects a member's outstanding balance into petty cash and
// marks their open transactions as settled.
func AdminSettle(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body settleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Settle(r.Context(), settlements.SettleInput{
			UserID:    body.UserID,
			CountryID: who.CountryID,
			ActorID:   &who.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
