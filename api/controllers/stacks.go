package controllers

import (
	"net/http"

	"github.com/angelmondragon/stackfinderz-backend/api/responses"
	"github.com/angelmondragon/stackfinderz-backend/api/validators"
	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
)

const maxSearchLength = 100

// StacksList serves the public catalog with industry, scale and search filters.
func StacksList(svc stacks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("stack"))
			return
		}
		page, err := pageFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), stacks.ListParams{
			Industry: validators.ParseQueryString(r, "industry", maxSearchLength),
			Scale:    validators.ParseQueryString(r, "scale", maxSearchLength),
			Search:   validators.ParseQueryString(r, "search", maxSearchLength),
			Page:     page.Page,
			Limit:    page.Limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func StackGet(svc stacks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("stack"))
			return
		}
		id, err := validators.ParseURLUUID(r, "stackId", "Stack")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stack, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"stack": stack})
	}
}
