package contributions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/internal/repo"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	"github.com/angelmondragon/stackfinderz-backend/pkg/pagination"
)

// Transition is the terminal review write applied to a pending contribution.
type Transition struct {
	ID         uuid.UUID
	Status     enums.ContributionStatus
	ReviewedBy uuid.UUID
	ReviewedAt time.Time
	AdminNotes *string
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, c *models.Contribution) error {
	return r.DB(ctx).Create(c).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Contribution, error) {
	var c models.Contribution
	if err := r.DB(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns one page ordered by creation time, newest first, with submitter and reviewer loaded.
// A nil status lists every contribution.
func (r *Repository) List(ctx context.Context, status *enums.ContributionStatus, page pagination.Params) ([]models.Contribution, int64, error) {
	scoped := func() *gorm.DB {
		q := r.DB(ctx).Model(&models.Contribution{})
		if status != nil {
			q = q.Where("status = ?", *status)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Contribution
	err := scoped().
		Preload("Submitter").
		Preload("Reviewer").
		Order("created_at DESC").
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	return rows, total, err
}

// TransitionFromPending applies t only while the row is still pending and
// returns the number of rows changed. Zero means another reviewer got there first.
func (r *Repository) TransitionFromPending(ctx context.Context, t Transition) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Contribution{}).
		Where("id = ? AND status = ?", t.ID, enums.ContributionStatusPending).
		Updates(map[string]any{
			"status":      t.Status,
			"reviewed_by": t.ReviewedBy,
			"reviewed_at": t.ReviewedAt,
			"admin_notes": t.AdminNotes,
			"updated_at":  t.ReviewedAt,
		})
	return res.RowsAffected, res.Error
}

// PromotionOrphan is a catalog entry whose source contribution never reached approved.
type PromotionOrphan struct {
	StackID            uuid.UUID                `gorm:"column:stack_id"`
	ContributionID     uuid.UUID                `gorm:"column:contribution_id"`
	ContributionStatus enums.ContributionStatus `gorm:"column:contribution_status"`
	PromotedBy         *uuid.UUID               `gorm:"column:promoted_by"`
	StackCreatedAt     time.Time                `gorm:"column:stack_created_at"`
}

func (r *Repository) promotions(ctx context.Context, cutoff time.Time) *gorm.DB {
	return r.DB(ctx).
		Table("stacks AS s").
		Joins("JOIN contributions c ON c.id = s.promoted_from").
		Where("c.status <> ?", enums.ContributionStatusApproved).
		Where("s.created_at < ?", cutoff)
}

// ListPendingPromotions returns stacks created before cutoff whose promoted_from
// contribution is still pending and carries a promoting admin, oldest first.
func (r *Repository) ListPendingPromotions(ctx context.Context, cutoff time.Time, limit int) ([]PromotionOrphan, error) {
	var rows []PromotionOrphan
	err := r.promotions(ctx, cutoff).
		Select("s.id AS stack_id, c.id AS contribution_id, c.status AS contribution_status, s.promoted_by AS promoted_by, s.created_at AS stack_created_at").
		Where("c.status = ?", enums.ContributionStatusPending).
		Where("s.promoted_by IS NOT NULL").
		Order("s.created_at ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// CountStrandedPromotions counts catalog entries whose source contribution can no
// longer be completed: rejected, or pending without a promoting admin.
func (r *Repository) CountStrandedPromotions(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.promotions(ctx, cutoff).
		Where("NOT (c.status = ? AND s.promoted_by IS NOT NULL)", enums.ContributionStatusPending).
		Count(&count).Error
	return count, err
}
