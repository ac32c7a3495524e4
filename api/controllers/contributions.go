package controllers

import (
	"net/http"

	"github.com/angelmondragon/stackfinderz-backend/api/responses"
	"github.com/angelmondragon/stackfinderz-backend/api/validators"
	"github.com/angelmondragon/stackfinderz-backend/internal/contributions"
	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
)

const submittedMessage = "Contribution submitted successfully"

// contributionRequest has no validate tags. The profile validator reports every violation at once.
type contributionRequest struct {
	Name        string              `json:"name"`
	Industry    string              `json:"industry"`
	Scale       string              `json:"scale"`
	Location    string              `json:"location"`
	Description string              `json:"description"`
	Founded     *int                `json:"founded"`
	Employees   string              `json:"employees"`
	Funding     string              `json:"funding"`
	Website     *string             `json:"website"`
	TechStack   map[string][]string `json:"techStack"`
}

func (c contributionRequest) input() contributions.SubmitInput {
	return contributions.SubmitInput{Profile: stacks.Profile{
		Name:        c.Name,
		Industry:    c.Industry,
		Scale:       c.Scale,
		Location:    c.Location,
		Description: c.Description,
		Founded:     c.Founded,
		Employees:   c.Employees,
		Funding:     c.Funding,
		Website:     c.Website,
		TechStack:   c.TechStack,
	}}
}

type reviewRequest struct {
	Action     string `json:"action"`
	AdminNotes string `json:"adminNotes"`
}

// ContributionSubmit queues a proposed stack for moderation.
func ContributionSubmit(svc contributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("contribution"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body contributionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), actor, body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"message":      submittedMessage,
			"contribution": result,
		})
	}
}

// AdminContributionsList pages the moderation queue, pending first by default.
func AdminContributionsList(svc contributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("contribution"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := pageFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), actor, contributions.ListParams{
			Status: validators.ParseQueryString(r, "status", 20),
			Page:   page.Page,
			Limit:  page.Limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminContributionReview approves or rejects a pending contribution.
func AdminContributionReview(svc contributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("contribution"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseURLUUID(r, "contributionId", "Contribution")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Review(r.Context(), actor, id, contributions.ReviewInput{
			Action:     body.Action,
			AdminNotes: body.AdminNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
