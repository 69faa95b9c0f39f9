package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/SaifAzz/kiosk/api/responses"
	"github.com/SaifAzz/kiosk/api/validators"
	"github.com/SaifAzz/kiosk/internal/transactions"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

type checkoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

// TransactionCheckout records a credit purchase for the caller. Prices and
// stock come from the catalog, never from the request body.
func TransactionCheckout(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]transactions.CheckoutItem, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, transactions.CheckoutItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		dto, err := svc.Checkout(r.Context(), transactions.CheckoutInput{
			UserID:    who.UserID,
			CountryID: who.CountryID,
			Items:     items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// TransactionList returns the caller's own unsettled purchases. Admins see
// every transaction in their country and may filter by settled state.
func TransactionList(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if who.Role == "admin" {
			var settled *bool
			switch r.URL.Query().Get("settled") {
			case "":
			case "true":
				v := true
				settled = &v
			case "false":
				v := false
				settled = &v
			default:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "settled must be true or false"))
				return
			}

			rows, err := svc.ListForCountry(r.Context(), who.CountryID, settled)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rows)
			return
		}

		rows, err := svc.ListForUser(r.Context(), who.UserID, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
