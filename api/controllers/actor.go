package controllers

import (
	"net/http"

	"github.com/angelmondragon/stackfinderz-backend/api/middleware"
	"github.com/angelmondragon/stackfinderz-backend/api/validators"
	"github.com/angelmondragon/stackfinderz-backend/internal/contributions"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
	"github.com/angelmondragon/stackfinderz-backend/pkg/pagination"
)

const maxPage = 1_000_000

func actorFromRequest(r *http.Request) (contributions.Actor, error) {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return contributions.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return contributions.Actor{UserID: userID, Role: role}, nil
}

// pageFromQuery reads page and limit. Oversized limits are capped by the services.
func pageFromQuery(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, maxPage)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxPage)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
