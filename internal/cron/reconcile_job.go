package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/internal/contributions"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	"github.com/angelmondragon/stackfinderz-backend/pkg/metrics"
	"github.com/angelmondragon/stackfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/stackfinderz-backend/pkg/outbox/payloads"
)

const (
	reconcileJobName      = "promotion-reconcile"
	reconcileNote         = "reconciled"
	defaultReconcileBatch = 100
	defaultReconcileGrace = 2 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orphanSource interface {
	ListPendingPromotions(ctx context.Context, cutoff time.Time, limit int) ([]contributions.PromotionOrphan, error)
	CountStrandedPromotions(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReconcileJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository orphanSource
	Outbox     outbox.Emitter
	Metrics    *metrics.ReviewMetrics
	BatchSize  int
	// Grace keeps the job away from approvals that are still in flight.
	Grace time.Duration
}

// reconcileJob finds catalog entries created by an approval whose status write never landed.
// Still-pending sources are completed. Anything else is counted as an orphan and left in place.
type reconcileJob struct {
	logg    *logger.Logger
	db      txRunner
	repo    orphanSource
	outbox  outbox.Emitter
	metrics *metrics.ReviewMetrics
	batch   int
	grace   time.Duration
	now     func() time.Time

	// last orphan count reported; -1 until the first run
	reported int64
}

func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("contribution repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultReconcileGrace
	}
	return &reconcileJob{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repository,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		batch:    batch,
		grace:    grace,
		now:      func() time.Time { return time.Now().UTC() },
		reported: -1,
	}, nil
}

func (j *reconcileJob) Name() string { return reconcileJobName }

func (j *reconcileJob) Run(ctx context.Context) error {
	now := j.now()
	cutoff := now.Add(-j.grace)
	rows, err := j.repo.ListPendingPromotions(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list pending promotions: %w", err)
	}

	var (
		errs       error
		reconciled int
	)
	for _, row := range rows {
		if row.PromotedBy == nil {
			continue
		}
		rowCtx := j.logg.WithFields(ctx, map[string]any{
			"stack_id":        row.StackID.String(),
			"contribution_id": row.ContributionID.String(),
		})
		applied, err := j.complete(ctx, row, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("contribution %s: %w", row.ContributionID, err))
			continue
		}
		if applied {
			reconciled++
			j.logg.Info(rowCtx, "pending contribution completed from catalog entry")
		}
	}
	j.metrics.AddReconciled(reconciled)

	orphans, err := j.repo.CountStrandedPromotions(ctx, cutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("count stranded promotions: %w", err))
		orphans = j.reported
	} else {
		j.reportOrphans(ctx, orphans)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":    len(rows),
		"reconciled": reconciled,
		"orphans":    orphans,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "promotion reconcile complete")
	return errs
}

// reportOrphans warns only when the orphan count moves, so entries that stay
// stranded are not re-reported every cycle.
func (j *reconcileJob) reportOrphans(ctx context.Context, orphans int64) {
	j.metrics.SetOrphans(orphans)
	if orphans == j.reported {
		return
	}
	j.reported = orphans
	if orphans == 0 {
		return
	}
	j.logg.Warn(j.logg.WithField(ctx, "orphans", orphans), "catalog entries without an approved source contribution")
}

// complete applies the same conditional write a reviewer would. It reports false when
// a reviewer finished the contribution between the scan and the write.
func (j *reconcileJob) complete(ctx context.Context, row contributions.PromotionOrphan, now time.Time) (bool, error) {
	reviewer := *row.PromotedBy
	note := reconcileNote
	applied := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := contributions.NewRepository(tx).TransitionFromPending(ctx, contributions.Transition{
			ID:         row.ContributionID,
			Status:     enums.ContributionStatusApproved,
			ReviewedBy: reviewer,
			ReviewedAt: now,
			AdminNotes: &note,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		applied = true
		stackID := row.StackID
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContributionReviewed,
			AggregateType: enums.AggregateContribution,
			AggregateID:   row.ContributionID,
			Actor:         &outbox.ActorRef{UserID: reviewer, Role: string(enums.UserRoleAdmin)},
			OccurredAt:    now,
			Data: payloads.ContributionReviewedEvent{
				ContributionID: row.ContributionID,
				Status:         enums.ContributionStatusApproved,
				ReviewedBy:     reviewer,
				ReviewedAt:     now,
				StackID:        &stackID,
				Reconciled:     true,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
