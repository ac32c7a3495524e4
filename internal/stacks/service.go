package stacks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
	"github.com/angelmondragon/stackfinderz-backend/pkg/pagination"
)

const filterAll = "all"

type stackRepository interface {
	Create(ctx context.Context, stack *models.Stack) error
	ListApproved(ctx context.Context, filter Filter, page pagination.Params) ([]models.Stack, int64, error)
	FindApprovedByID(ctx context.Context, id uuid.UUID) (*models.Stack, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// Service exposes the public catalog.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*StackDTO, error)
	Create(ctx context.Context, input CreateInput) (*StackDTO, error)
	// CreateIfMissing skips names already present in the catalog and reports whether a row was inserted.
	CreateIfMissing(ctx context.Context, input CreateInput) (bool, error)
}

type service struct {
	repo stackRepository
	now  func() time.Time
}

func NewService(repo stackRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stack repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize(pagination.DefaultLimit)
	filter, ok := parseFilter(params)
	if !ok {
		return &ListResult{Stacks: []StackDTO{}, Pagination: pagination.NewMeta(page, 0)}, nil
	}

	rows, total, err := s.repo.ListApproved(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stacks")
	}
	out := make([]StackDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return &ListResult{Stacks: out, Pagination: pagination.NewMeta(page, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*StackDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stack id is required")
	}
	stack, err := s.repo.FindApprovedByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "stack not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stack")
	}
	dto := FromModel(stack)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*StackDTO, error) {
	stack, err := s.build(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, stack); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stack")
	}
	dto := FromModel(stack)
	return &dto, nil
}

func (s *service) CreateIfMissing(ctx context.Context, input CreateInput) (bool, error) {
	stack, err := s.build(input)
	if err != nil {
		return false, err
	}
	exists, err := s.repo.ExistsByName(ctx, stack.Name)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stack name")
	}
	if exists {
		return false, nil
	}
	if err := s.repo.Create(ctx, stack); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stack")
	}
	return true, nil
}

func (s *service) build(input CreateInput) (*models.Stack, error) {
	profile, err := input.Profile.Normalize(s.now())
	if err != nil {
		return nil, err
	}
	stack := ModelFromProfile(profile)
	if input.Logo != nil {
		if logo := strings.TrimSpace(*input.Logo); logo != "" {
			stack.Logo = &logo
		}
	}
	return stack, nil
}

// parseFilter reports false when industry or scale names a value outside the
// enums; nothing in the catalog can match such a filter.
func parseFilter(params ListParams) (Filter, bool) {
	filter := Filter{Search: strings.TrimSpace(params.Search)}
	if v := normalizeFilter(params.Industry); v != "" {
		industry, err := enums.ParseIndustry(v)
		if err != nil {
			return Filter{}, false
		}
		filter.Industry = string(industry)
	}
	if v := normalizeFilter(params.Scale); v != "" {
		scale, err := enums.ParseScale(v)
		if err != nil {
			return Filter{}, false
		}
		filter.Scale = string(scale)
	}
	return filter, true
}

func normalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, filterAll) {
		return ""
	}
	return v
}
