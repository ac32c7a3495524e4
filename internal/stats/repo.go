package stats

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/internal/repo"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
)

// Bucket is one row of a distribution.
type Bucket struct {
	Key   string `gorm:"column:bucket_key" json:"_id"`
	Count int64  `gorm:"column:bucket_count" json:"count"`
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) CountApprovedStacks(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Stack{}).Where("status = ?", enums.StackStatusApproved).Count(&n).Error
	return n, err
}

func (r *Repository) CountPendingContributions(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Contribution{}).Where("status = ?", enums.ContributionStatusPending).Count(&n).Error
	return n, err
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *Repository) IndustryDistribution(ctx context.Context) ([]Bucket, error) {
	return r.distribution(ctx, "industry")
}

func (r *Repository) ScaleDistribution(ctx context.Context) ([]Bucket, error) {
	return r.distribution(ctx, "scale")
}

// distribution groups approved stacks by column, largest bucket first. Ties are
// ordered by key in byte order; enum columns would otherwise sort by declaration.
func (r *Repository) distribution(ctx context.Context, column string) ([]Bucket, error) {
	var rows []Bucket
	err := r.DB(ctx).
		Model(&models.Stack{}).
		Select("CAST(" + column + " AS TEXT) AS bucket_key, COUNT(*) AS bucket_count").
		Where("status = ?", enums.StackStatusApproved).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	slices.SortFunc(rows, func(a, b Bucket) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return rows, nil
}
