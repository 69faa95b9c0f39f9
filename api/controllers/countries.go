package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SaifAzz/kiosk/api/responses"
	"github.com/SaifAzz/kiosk/internal/countries"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

// countryView is the member-facing shape. Fund balances are admin-only and
// surface through the country-info report instead.
type countryView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CountryList returns every country.
func CountryList(repo *countries.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "country repository unavailable"))
			return
		}

		rows, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list countries"))
			return
		}

		views := make([]countryView, 0, len(rows))
		for _, row := range rows {
			views = append(views, countryView{ID: row.ID, Name: row.Name})
		}

		responses.WriteSuccess(w, views)
	}
}

// CountryGet returns a single country by id.
func CountryGet(repo *countries.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "country repository unavailable"))
			return
		}

		countryID, err := uuid.Parse(chi.URLParam(r, "countryId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid country id"))
			return
		}

		row, err := repo.FindByID(r.Context(), countryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "country not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load country"))
			return
		}

		responses.WriteSuccess(w, countryView{ID: row.ID, Name: row.Name})
	}
}
