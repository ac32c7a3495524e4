package models

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark links a user to a saved stack. The pair is unique.
type Bookmark struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	StackID   uuid.UUID `gorm:"column:stack_id;type:uuid;primaryKey;index:bookmarks_stack_id_idx"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
