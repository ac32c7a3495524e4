package bookmarks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stackfinderz-backend/internal/repo"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
)

// Repository encapsulates bookmark persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Add inserts the pair and ignores duplicates. It reports whether a row was written.
func (r *Repository) Add(ctx context.Context, userID, stackID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || stackID == uuid.Nil {
		return false, gorm.ErrInvalidValue
	}
	res := r.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Bookmark{UserID: userID, StackID: stackID})
	return res.RowsAffected > 0, res.Error
}

// Remove deletes the pair and reports whether it existed.
func (r *Repository) Remove(ctx context.Context, userID, stackID uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Where("user_id = ? AND stack_id = ?", userID, stackID).
		Delete(&models.Bookmark{})
	return res.RowsAffected > 0, res.Error
}

// ListStacks returns the user's bookmarked stacks, most recently bookmarked first.
// Bookmarks pointing at missing or unpublished stacks are skipped.
func (r *Repository) ListStacks(ctx context.Context, userID uuid.UUID) ([]models.Stack, error) {
	var rows []models.Stack
	err := r.DB(ctx).
		Model(&models.Stack{}).
		Select("stacks.*").
		Joins("JOIN bookmarks b ON b.stack_id = stacks.id").
		Where("b.user_id = ? AND stacks.status = ?", userID, enums.StackStatusApproved).
		Order("b.created_at DESC").
		Order("stacks.id ASC").
		Find(&rows).Error
	return rows, err
}

// ListStackIDs returns the ids of bookmarked stacks that still exist.
func (r *Repository) ListStackIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Table("bookmarks AS b").
		Joins("JOIN stacks s ON s.id = b.stack_id").
		Where("b.user_id = ? AND s.status = ?", userID, enums.StackStatusApproved).
		Order("b.created_at DESC").
		Pluck("b.stack_id", &ids).Error
	return ids, err
}
