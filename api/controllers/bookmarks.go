package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/stackfinderz-backend/api/responses"
	"github.com/angelmondragon/stackfinderz-backend/api/validators"
	"github.com/angelmondragon/stackfinderz-backend/internal/bookmarks"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
)

type bookmarkRequest struct {
	StackID uuid.UUID `json:"stackId" validate:"required"`
}

// BookmarkToggle adds the stack to the caller's bookmarks, or removes it when already present.
func BookmarkToggle(svc bookmarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("bookmark"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body bookmarkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Toggle(r.Context(), actor.UserID, body.StackID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func BookmarksList(svc bookmarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("bookmark"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"bookmarks": list})
	}
}
