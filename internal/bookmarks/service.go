package bookmarks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
)

const (
	msgAdded   = "Stack bookmarked"
	msgRemoved = "Bookmark removed"
)

type bookmarkRepository interface {
	Add(ctx context.Context, userID, stackID uuid.UUID) (bool, error)
	Remove(ctx context.Context, userID, stackID uuid.UUID) (bool, error)
	ListStacks(ctx context.Context, userID uuid.UUID) ([]models.Stack, error)
	ListStackIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type stackLookup interface {
	FindApprovedByID(ctx context.Context, id uuid.UUID) (*models.Stack, error)
}

// ToggleResult reports the bookmark state after a toggle.
type ToggleResult struct {
	Message    string `json:"message"`
	Bookmarked bool   `json:"bookmarked"`
}

type Service interface {
	Toggle(ctx context.Context, userID, stackID uuid.UUID) (*ToggleResult, error)
	List(ctx context.Context, userID uuid.UUID) ([]stacks.StackDTO, error)
	StackIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo   bookmarkRepository
	stacks stackLookup
}

func NewService(repo bookmarkRepository, stackRepo stackLookup) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bookmark repository is required")
	}
	if stackRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stack repository is required")
	}
	return &service{repo: repo, stacks: stackRepo}, nil
}

// Toggle removes an existing bookmark or adds a missing one.
func (s *service) Toggle(ctx context.Context, userID, stackID uuid.UUID) (*ToggleResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if stackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"stackId": "is required"})
	}
	if _, err := s.stacks.FindApprovedByID(ctx, stackID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "stack not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stack")
	}

	removed, err := s.repo.Remove(ctx, userID, stackID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove bookmark")
	}
	if removed {
		return &ToggleResult{Message: msgRemoved, Bookmarked: false}, nil
	}
	// a concurrent toggle may have inserted first; the pair still ends up bookmarked
	if _, err := s.repo.Add(ctx, userID, stackID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add bookmark")
	}
	return &ToggleResult{Message: msgAdded, Bookmarked: true}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]stacks.StackDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := s.repo.ListStacks(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookmarks")
	}
	out := make([]stacks.StackDTO, 0, len(rows))
	for i := range rows {
		out = append(out, stacks.FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) StackIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.ListStackIDs(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookmark ids")
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}
