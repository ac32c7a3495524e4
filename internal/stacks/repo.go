package stacks

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/internal/repo"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	"github.com/angelmondragon/stackfinderz-backend/pkg/pagination"
)

// Filter narrows catalog listings. Zero values mean no filter.
type Filter struct {
	Industry string
	Scale    string
	Search   string
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, stack *models.Stack) error {
	return r.DB(ctx).Create(stack).Error
}

// ListApproved returns one page of approved stacks, newest first, plus the total match count.
func (r *Repository) ListApproved(ctx context.Context, filter Filter, page pagination.Params) ([]models.Stack, int64, error) {
	scoped := func() *gorm.DB {
		q := r.DB(ctx).Model(&models.Stack{}).Where("status = ?", enums.StackStatusApproved)
		if filter.Industry != "" {
			q = q.Where("industry = ?", filter.Industry)
		}
		if filter.Scale != "" {
			q = q.Where("scale = ?", filter.Scale)
		}
		if filter.Search != "" {
			like := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
			q = q.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", like, like)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Stack
	err := scoped().
		Order("created_at DESC").
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) FindApprovedByID(ctx context.Context, id uuid.UUID) (*models.Stack, error) {
	var stack models.Stack
	err := r.DB(ctx).Where("id = ? AND status = ?", id, enums.StackStatusApproved).First(&stack).Error
	if err != nil {
		return nil, err
	}
	return &stack, nil
}

func (r *Repository) FindByPromotedFrom(ctx context.Context, contributionID uuid.UUID) (*models.Stack, error) {
	var stack models.Stack
	if err := r.DB(ctx).Where("promoted_from = ?", contributionID).First(&stack).Error; err != nil {
		return nil, err
	}
	return &stack, nil
}

// ExistsByName is used by seeding to stay idempotent.
func (r *Repository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Stack{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error
	return count > 0, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
