package contributions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	"github.com/angelmondragon/stackfinderz-backend/pkg/metrics"
	"github.com/angelmondragon/stackfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/stackfinderz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/stackfinderz-backend/pkg/pagination"
)

const (
	defaultNotesMaxLength = 1000
	promotedFromIndex     = "ux_stacks_promoted_from"
	promotedFromColumn    = "stacks.promoted_from"
)

type stackWriter interface {
	Create(ctx context.Context, stack *models.Stack) error
	FindByPromotedFrom(ctx context.Context, contributionID uuid.UUID) (*models.Stack, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the review workflow.
type ServiceParams struct {
	Repo           *Repository
	Stacks         stackWriter
	DB             txRunner
	Outbox         outbox.Emitter
	Metrics        *metrics.ReviewMetrics
	Logger         *logger.Logger
	NotesMaxLength int
}

// Service implements submission, moderation and listing of contributions.
type Service interface {
	Submit(ctx context.Context, actor Actor, input SubmitInput) (*SubmitResult, error)
	Review(ctx context.Context, actor Actor, contributionID uuid.UUID, input ReviewInput) (*ReviewResult, error)
	List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error)
}

type service struct {
	repo     *Repository
	stacks   stackWriter
	db       txRunner
	outbox   outbox.Emitter
	metrics  *metrics.ReviewMetrics
	logg     *logger.Logger
	notesMax int
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contribution repository is required")
	}
	if params.Stacks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stack repository is required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	notesMax := params.NotesMaxLength
	if notesMax <= 0 {
		notesMax = defaultNotesMaxLength
	}
	return &service{
		repo:     params.Repo,
		stacks:   params.Stacks,
		db:       params.DB,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		notesMax: notesMax,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Submit validates the proposal and stores it as pending together with a contribution_submitted event.
func (s *service) Submit(ctx context.Context, actor Actor, input SubmitInput) (*SubmitResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	now := s.now()
	profile, err := input.Profile.Normalize(now)
	if err != nil {
		return nil, err
	}

	contribution := &models.Contribution{
		Name:        profile.Name,
		Industry:    profile.Industry,
		Scale:       profile.Scale,
		Location:    profile.Location,
		Description: profile.Description,
		Founded:     profile.Founded,
		Employees:   profile.Employees,
		Funding:     profile.Funding,
		Website:     profile.Website,
		TechStack:   profile.TechStack,
		Status:      enums.ContributionStatusPending,
		SubmittedBy: actor.UserID,
		SubmittedAt: now,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, contribution); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contribution")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContributionSubmitted,
			AggregateType: enums.AggregateContribution,
			AggregateID:   contribution.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			OccurredAt:    now,
			Data: payloads.ContributionSubmittedEvent{
				ContributionID: contribution.ID,
				SubmittedBy:    actor.UserID,
				Name:           contribution.Name,
				Industry:       contribution.Industry,
				Scale:          contribution.Scale,
				SubmittedAt:    now,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit contribution")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"contribution_id": contribution.ID.String(),
			"user_id":         actor.UserID.String(),
		})
		s.logg.Info(logCtx, "contribution submitted")
	}
	return &SubmitResult{
		ID:          contribution.ID,
		Name:        contribution.Name,
		Status:      contribution.Status,
		SubmittedAt: contribution.SubmittedAt,
	}, nil
}

// Review applies an admin decision to a pending contribution.
//
// Approval creates the catalog entry first and then performs the conditional
// pending -> approved write. The write and its outbox events share one transaction;
// if the write loses a race the call fails with CONFLICT and the created entry is
// left for the reconciliation job.
func (s *service) Review(ctx context.Context, actor Actor, contributionID uuid.UUID, input ReviewInput) (*ReviewResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	action, err := enums.ParseReviewAction(input.Action)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidAction, err, "Invalid action").
			WithDetails(map[string]string{"action": "must be approve or reject"})
	}
	notes, err := s.normalizeNotes(input.AdminNotes)
	if err != nil {
		return nil, err
	}
	if contributionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Contribution not found")
	}

	contribution, err := s.repo.FindByID(ctx, contributionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Contribution not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contribution")
	}
	if contribution.Status != enums.ContributionStatusPending {
		s.metrics.IncDecision(string(action), metrics.OutcomeConflict)
		return nil, alreadyReviewed(contribution.Status)
	}

	var stack *models.Stack
	if action == enums.ReviewActionApprove {
		stack, err = s.promote(ctx, contribution, actor.UserID)
		if err != nil {
			s.metrics.IncDecision(string(action), outcomeFor(err))
			return nil, err
		}
	}

	reviewedAt := s.now()
	target := action.TargetStatus()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).TransitionFromPending(ctx, Transition{
			ID:         contribution.ID,
			Status:     target,
			ReviewedBy: actor.UserID,
			ReviewedAt: reviewedAt,
			AdminNotes: notes,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contribution status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "contribution was reviewed concurrently")
		}
		return s.emitReviewed(ctx, tx, actor, contribution, target, reviewedAt, stack)
	})
	if err != nil {
		s.metrics.IncDecision(string(action), outcomeFor(err))
		if stack != nil && pkgerrors.HasCode(err, pkgerrors.CodeConflict) && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"contribution_id": contribution.ID.String(),
				"stack_id":        stack.ID.String(),
			})
			s.logg.Warn(logCtx, "catalog entry created but review lost the race; left for reconciliation")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "review contribution")
	}

	s.metrics.IncDecision(string(action), metrics.OutcomeApplied)
	if s.logg != nil {
		fields := map[string]any{
			"contribution_id": contribution.ID.String(),
			"reviewer_id":     actor.UserID.String(),
			"action":          string(action),
		}
		if stack != nil {
			fields["stack_id"] = stack.ID.String()
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "contribution reviewed")
	}

	if stack == nil {
		return &ReviewResult{Message: msgRejected}, nil
	}
	id := stack.ID
	return &ReviewResult{Message: msgApproved, StackID: &id}, nil
}

// promote inserts the catalog entry for c. A leftover entry from an earlier
// attempt that crashed before the status write is reused.
func (s *service) promote(ctx context.Context, c *models.Contribution, reviewerID uuid.UUID) (*models.Stack, error) {
	existing, err := s.stacks.FindByPromotedFrom(ctx, c.ID)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check promoted stack")
	}

	stack := stackFromContribution(c, reviewerID)
	if err := s.stacks.Create(ctx, stack); err != nil {
		if dbpkg.IsUniqueViolation(err, promotedFromIndex) || dbpkg.IsUniqueViolation(err, promotedFromColumn) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "contribution is being approved concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stack")
	}
	return stack, nil
}

func (s *service) emitReviewed(ctx context.Context, tx *gorm.DB, actor Actor, c *models.Contribution, status enums.ContributionStatus, at time.Time, stack *models.Stack) error {
	ref := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	reviewed := payloads.ContributionReviewedEvent{
		ContributionID: c.ID,
		Status:         status,
		ReviewedBy:     actor.UserID,
		ReviewedAt:     at,
	}
	if stack != nil {
		id := stack.ID
		reviewed.StackID = &id
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventContributionReviewed,
		AggregateType: enums.AggregateContribution,
		AggregateID:   c.ID,
		Actor:         ref,
		OccurredAt:    at,
		Data:          reviewed,
	}); err != nil {
		return fmt.Errorf("emit %s: %w", enums.EventContributionReviewed, err)
	}
	if stack == nil {
		return nil
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStackPublished,
		AggregateType: enums.AggregateStack,
		AggregateID:   stack.ID,
		Actor:         ref,
		OccurredAt:    at,
		Data: payloads.StackPublishedEvent{
			StackID:        stack.ID,
			ContributionID: c.ID,
			Name:           stack.Name,
			Industry:       stack.Industry,
			Scale:          stack.Scale,
			ContributedBy:  c.SubmittedBy,
		},
	}); err != nil {
		return fmt.Errorf("emit %s: %w", enums.EventStackPublished, err)
	}
	return nil
}

// List returns contributions for moderation. An empty status means pending.
func (s *service) List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	filter, err := enums.ParseContributionStatusFilter(params.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").
			WithDetails(map[string]string{"status": "must be one of pending, approved, rejected, all"})
	}
	var status *enums.ContributionStatus
	if st, ok := filter.Status(); ok {
		status = &st
	}

	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize(DefaultListLimit)
	rows, total, err := s.repo.List(ctx, status, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contributions")
	}
	out := make([]ContributionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return &ListResult{Contributions: out, Pagination: pagination.NewMeta(page, total)}, nil
}

func (s *service) normalizeNotes(raw string) (*string, error) {
	notes := strings.TrimSpace(raw)
	if notes == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(notes) > s.notesMax {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"adminNotes": fmt.Sprintf("must be at most %d characters", s.notesMax)})
	}
	return &notes, nil
}

func alreadyReviewed(status enums.ContributionStatus) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "contribution has already been reviewed").
		WithDetails(map[string]string{"status": string(status)})
}

func outcomeFor(err error) string {
	if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeFailed
}
