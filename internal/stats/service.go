package stats

import (
	"context"
	"time"

	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
)

type statsRepository interface {
	CountApprovedStacks(ctx context.Context) (int64, error)
	CountPendingContributions(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	IndustryDistribution(ctx context.Context) ([]Bucket, error)
	ScaleDistribution(ctx context.Context) ([]Bucket, error)
}

// Summary is the admin dashboard aggregate. It is computed on every call.
type Summary struct {
	TotalStacks          int64     `json:"totalStacks"`
	PendingContributions int64     `json:"pendingContributions"`
	TotalUsers           int64     `json:"totalUsers"`
	IndustryStats        []Bucket  `json:"industryStats"`
	ScaleStats           []Bucket  `json:"scaleStats"`
	GeneratedAt          time.Time `json:"generatedAt"`
}

type Service interface {
	Get(ctx context.Context) (*Summary, error)
}

type service struct {
	repo statsRepository
	now  func() time.Time
}

func NewService(repo statsRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stats repository is required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Get(ctx context.Context) (*Summary, error) {
	out := &Summary{GeneratedAt: s.now()}
	var err error

	if out.TotalStacks, err = s.repo.CountApprovedStacks(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count stacks")
	}
	if out.PendingContributions, err = s.repo.CountPendingContributions(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending contributions")
	}
	if out.TotalUsers, err = s.repo.CountUsers(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	if out.IndustryStats, err = s.repo.IndustryDistribution(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "industry distribution")
	}
	if out.ScaleStats, err = s.repo.ScaleDistribution(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scale distribution")
	}
	if out.IndustryStats == nil {
		out.IndustryStats = []Bucket{}
	}
	if out.ScaleStats == nil {
		out.ScaleStats = []Bucket{}
	}
	return out, nil
}
