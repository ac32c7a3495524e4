package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/stackfinderz-backend/pkg/db/types"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
)

// Contribution is a user submitted stack awaiting moderation.
// Review metadata stays nil while the status is pending.
type Contribution struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                   `gorm:"column:name;not null"`
	Industry    enums.Industry           `gorm:"column:industry;type:industry;not null"`
	Scale       enums.Scale              `gorm:"column:scale;type:company_scale;not null"`
	Location    string                   `gorm:"column:location;not null"`
	Description string                   `gorm:"column:description;not null"`
	Founded     *int                     `gorm:"column:founded"`
	Employees   string                   `gorm:"column:employees;not null;default:''"`
	Funding     string                   `gorm:"column:funding;not null;default:''"`
	Website     *string                  `gorm:"column:website"`
	TechStack   dbtypes.TechStack        `gorm:"column:tech_stack;type:jsonb;not null"`
	Status      enums.ContributionStatus `gorm:"column:status;type:contribution_status;not null;default:pending"`

	SubmittedBy uuid.UUID `gorm:"column:submitted_by;type:uuid;not null"`
	SubmittedAt time.Time `gorm:"column:submitted_at;not null"`

	ReviewedBy *uuid.UUID `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`
	AdminNotes *string    `gorm:"column:admin_notes"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Submitter *User `gorm:"foreignKey:SubmittedBy;references:ID"`
	Reviewer  *User `gorm:"foreignKey:ReviewedBy;references:ID"`
}

func (c *Contribution) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = enums.ContributionStatusPending
	}
	if c.TechStack == nil {
		c.TechStack = dbtypes.TechStack{}
	}
	return nil
}
