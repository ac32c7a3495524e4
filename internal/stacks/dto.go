package stacks

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	"github.com/angelmondragon/stackfinderz-backend/pkg/pagination"
)

// StackDTO is the public representation of a catalog entry.
type StackDTO struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Industry      enums.Industry      `json:"industry"`
	Scale         enums.Scale         `json:"scale"`
	Location      string              `json:"location"`
	Description   string              `json:"description"`
	Founded       *int                `json:"founded,omitempty"`
	Employees     string              `json:"employees,omitempty"`
	Funding       string              `json:"funding,omitempty"`
	Website       *string             `json:"website,omitempty"`
	Logo          *string             `json:"logo,omitempty"`
	TechStack     map[string][]string `json:"techStack"`
	Status        enums.StackStatus   `json:"status"`
	ContributedBy *uuid.UUID          `json:"contributedBy,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// ListParams are the catalog query inputs. Empty or "all" filters are ignored.
type ListParams struct {
	Industry string
	Scale    string
	Search   string
	Page     int
	Limit    int
}

type ListResult struct {
	Stacks     []StackDTO      `json:"stacks"`
	Pagination pagination.Meta `json:"pagination"`
}

// CreateInput is used by administrative seeding.
type CreateInput struct {
	Profile
	Logo *string
}

func FromModel(m *models.Stack) StackDTO {
	tech := m.TechStack.Clone()
	if tech == nil {
		tech = map[string][]string{}
	}
	return StackDTO{
		ID:            m.ID,
		Name:          m.Name,
		Industry:      m.Industry,
		Scale:         m.Scale,
		Location:      m.Location,
		Description:   m.Description,
		Founded:       m.Founded,
		Employees:     m.Employees,
		Funding:       m.Funding,
		Website:       m.Website,
		Logo:          m.Logo,
		TechStack:     tech,
		Status:        m.Status,
		ContributedBy: m.ContributedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ModelFromProfile builds an approved catalog row from validated fields.
func ModelFromProfile(p NormalizedProfile) *models.Stack {
	return &models.Stack{
		Name:        p.Name,
		Industry:    p.Industry,
		Scale:       p.Scale,
		Location:    p.Location,
		Description: p.Description,
		Founded:     p.Founded,
		Employees:   p.Employees,
		Funding:     p.Funding,
		Website:     p.Website,
		TechStack:   p.TechStack.Clone(),
		Status:      enums.StackStatusApproved,
	}
}
