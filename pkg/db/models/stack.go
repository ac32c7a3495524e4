package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/stackfinderz-backend/pkg/db/types"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
)

// Stack is a published catalog entry.
type Stack struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	Industry    enums.Industry    `gorm:"column:industry;type:industry;not null"`
	Scale       enums.Scale       `gorm:"column:scale;type:company_scale;not null"`
	Location    string            `gorm:"column:location;not null"`
	Description string            `gorm:"column:description;not null"`
	Founded     *int              `gorm:"column:founded"`
	Employees   string            `gorm:"column:employees;not null;default:''"`
	Funding     string            `gorm:"column:funding;not null;default:''"`
	Website     *string           `gorm:"column:website"`
	Logo        *string           `gorm:"column:logo"`
	TechStack   dbtypes.TechStack `gorm:"column:tech_stack;type:jsonb;not null"`
	Status      enums.StackStatus `gorm:"column:status;type:stack_status;not null;default:approved"`

	// ContributedBy is the submitter copied from the promoted contribution.
	ContributedBy *uuid.UUID `gorm:"column:contributed_by;type:uuid"`
	// PromotedFrom and PromotedBy are set when the stack was created by approving a contribution.
	PromotedFrom *uuid.UUID `gorm:"column:promoted_from;type:uuid;uniqueIndex:ux_stacks_promoted_from"`
	PromotedBy   *uuid.UUID `gorm:"column:promoted_by;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Stack) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = enums.StackStatusApproved
	}
	if s.TechStack == nil {
		s.TechStack = dbtypes.TechStack{}
	}
	return nil
}
