package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SaifAzz/kiosk/api/responses"
	"github.com/SaifAzz/kiosk/api/validators"
	"github.com/SaifAzz/kiosk/internal/products"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

// ProductList returns the catalog of the caller's country.
func ProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), who.CountryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type createProductRequest struct {
	Name         string          `json:"name" validate:"required,min=1,max=200"`
	Image        string          `json:"image" validate:"omitempty,max=2048"`
	PurchaseCost decimal.Decimal `json:"purchase_cost" validate:"required"`
	SellingPrice decimal.Decimal `json:"selling_price" validate:"required"`
	Stock        int             `json:"stock" validate:"required,min=1"`
}

// AdminProductCreate adds a product to the admin's country, paying for the
// initial stock out of petty cash.
func AdminProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), products.CreateProductInput{
			Name:         validators.SanitizeString(body.Name, 200),
			Image:        validators.SanitizeString(body.Image, 2048),
			PurchaseCost: body.PurchaseCost,
			SellingPrice: body.SellingPrice,
			Stock:        body.Stock,
			CountryID:    who.CountryID,
			ActorID:      &who.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

type restockRequest struct {
	Quantity int              `json:"quantity" validate:"required,min=1"`
	NewCost  *decimal.Decimal `json:"new_cost,omitempty"`
}

// AdminProductRestock adds units to an existing product, optionally at a new
// purchase cost.
func AdminProductRestock(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		who, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		var body restockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Restock(r.Context(), products.RestockInput{
			ProductID: productID,
			Quantity:  body.Quantity,
			NewCost:   body.NewCost,
			CountryID: who.CountryID,
			ActorID:   &who.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}
