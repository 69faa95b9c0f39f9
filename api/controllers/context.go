package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/SaifAzz/kiosk/api/middleware"
	pkgerrors "github.com/SaifAzz/kiosk/pkg/errors"
)

// actor is the authenticated principal reconstructed from the request context.
type actor struct {
	UserID    uuid.UUID
	CountryID uuid.UUID
	Role      string
}

func actorFromRequest(r *http.Request) (actor, error) {
	ctx := r.Context()

	userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	countryID, err := uuid.Parse(middleware.CountryIDFromContext(ctx))
	if err != nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "country context missing")
	}

	return actor{
		UserID:    userID,
		CountryID: countryID,
		Role:      middleware.RoleFromContext(ctx),
	}, nil
}
