package contributions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/internal/users"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	"github.com/angelmondragon/stackfinderz-backend/pkg/pagination"
)

const (
	DefaultListLimit = 10

	msgApproved = "Contribution approved and stack created"
	msgRejected = "Contribution rejected"
)

// Actor is the authenticated caller as resolved by the auth middleware.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// SubmitInput carries the raw descriptive fields of a proposed stack.
type SubmitInput struct {
	stacks.Profile
}

type SubmitResult struct {
	ID          uuid.UUID                `json:"id"`
	Name        string                   `json:"name"`
	Status      enums.ContributionStatus `json:"status"`
	SubmittedAt time.Time                `json:"submittedAt"`
}

// ReviewInput is the admin decision. Action is validated by the service.
type ReviewInput struct {
	Action     string
	AdminNotes string
}

type ReviewResult struct {
	Message string     `json:"message"`
	StackID *uuid.UUID `json:"stackId,omitempty"`
}

type ListParams struct {
	Status string
	Page   int
	Limit  int
}

type ListResult struct {
	Contributions []ContributionDTO `json:"contributions"`
	Pagination    pagination.Meta   `json:"pagination"`
}

// ContributionDTO is the moderation view of a contribution.
type ContributionDTO struct {
	ID          uuid.UUID                `json:"id"`
	Name        string                   `json:"name"`
	Industry    enums.Industry           `json:"industry"`
	Scale       enums.Scale              `json:"scale"`
	Location    string                   `json:"location"`
	Description string                   `json:"description"`
	Founded     *int                     `json:"founded,omitempty"`
	Employees   string                   `json:"employees,omitempty"`
	Funding     string                   `json:"funding,omitempty"`
	Website     *string                  `json:"website,omitempty"`
	TechStack   map[string][]string      `json:"techStack"`
	Status      enums.ContributionStatus `json:"status"`
	SubmittedAt time.Time                `json:"submittedAt"`
	SubmittedBy *users.SummaryDTO        `json:"submittedBy"`
	ReviewedBy  *users.SummaryDTO        `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time               `json:"reviewedAt,omitempty"`
	AdminNotes  *string                  `json:"adminNotes,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
}

func FromModel(m *models.Contribution) ContributionDTO {
	tech := m.TechStack.Clone()
	if tech == nil {
		tech = map[string][]string{}
	}
	submitter := users.SummaryFromModel(m.Submitter)
	if submitter == nil {
		submitter = &users.SummaryDTO{ID: m.SubmittedBy}
	}
	var reviewer *users.SummaryDTO
	switch {
	case m.Reviewer != nil:
		reviewer = users.SummaryFromModel(m.Reviewer)
	case m.ReviewedBy != nil:
		reviewer = &users.SummaryDTO{ID: *m.ReviewedBy}
	}
	return ContributionDTO{
		ID:          m.ID,
		Name:        m.Name,
		Industry:    m.Industry,
		Scale:       m.Scale,
		Location:    m.Location,
		Description: m.Description,
		Founded:     m.Founded,
		Employees:   m.Employees,
		Funding:     m.Funding,
		Website:     m.Website,
		TechStack:   tech,
		Status:      m.Status,
		SubmittedAt: m.SubmittedAt,
		SubmittedBy: submitter,
		ReviewedBy:  reviewer,
		ReviewedAt:  m.ReviewedAt,
		AdminNotes:  m.AdminNotes,
		CreatedAt:   m.CreatedAt,
	}
}

// stackFromContribution copies every descriptive field into a new approved catalog row.
func stackFromContribution(c *models.Contribution, reviewerID uuid.UUID) *models.Stack {
	submitter := c.SubmittedBy
	source := c.ID
	reviewer := reviewerID
	return &models.Stack{
		Name:          c.Name,
		Industry:      c.Industry,
		Scale:         c.Scale,
		Location:      c.Location,
		Description:   c.Description,
		Founded:       c.Founded,
		Employees:     c.Employees,
		Funding:       c.Funding,
		Website:       c.Website,
		TechStack:     c.TechStack.Clone(),
		Status:        enums.StackStatusApproved,
		ContributedBy: &submitter,
		PromotedFrom:  &source,
		PromotedBy:    &reviewer,
	}
}
