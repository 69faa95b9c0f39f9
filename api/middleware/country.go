package middleware

import (
	"net/http"

	"github.com/SaifAzz/kiosk/api/responses"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

// CountryContext rejects requests whose token carries no country scope.
func CountryContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CountryIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "country context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
