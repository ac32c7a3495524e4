package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/angelmondragon/stackfinderz-backend/internal/stats"
	bq "github.com/angelmondragon/stackfinderz-backend/pkg/bigquery"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
)

const (
	statsSnapshotJobName = "stats-snapshot"
	snapshotMarkerTTL    = 26 * time.Hour
)

type statsSource interface {
	Get(ctx context.Context) (*stats.Summary, error)
}

type StatsSnapshotJobParams struct {
	Logger   *logger.Logger
	Stats    statsSource
	Inserter bq.RowInserter
	Table    string
	// Marker remembers which UTC days were already exported.
	Marker lockStore
}

// statsSnapshotJob exports the dashboard aggregate once per UTC day.
type statsSnapshotJob struct {
	logg     *logger.Logger
	stats    statsSource
	inserter bq.RowInserter
	table    string
	marker   lockStore
	now      func() time.Time
}

func NewStatsSnapshotJob(params StatsSnapshotJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats service required")
	}
	if params.Inserter == nil {
		return nil, fmt.Errorf("bigquery inserter required")
	}
	if params.Table == "" {
		return nil, fmt.Errorf("snapshot table required")
	}
	if params.Marker == nil {
		return nil, fmt.Errorf("snapshot marker required")
	}
	return &statsSnapshotJob{
		logg:     params.Logger,
		stats:    params.Stats,
		inserter: params.Inserter,
		table:    params.Table,
		marker:   params.Marker,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *statsSnapshotJob) Name() string { return statsSnapshotJobName }

func (j *statsSnapshotJob) Run(ctx context.Context) error {
	day := j.now().Format(time.DateOnly)
	markerName := statsSnapshotJobName + ":" + day
	owner := uuid.NewString()

	fresh, err := j.marker.AcquireLock(ctx, markerName, owner, snapshotMarkerTTL)
	if err != nil {
		return fmt.Errorf("snapshot marker: %w", err)
	}
	if !fresh {
		return nil
	}

	summary, err := j.stats.Get(ctx)
	if err == nil {
		err = j.inserter.InsertRows(ctx, j.table, []any{newSnapshotRow(day, summary)})
	}
	if err != nil {
		// let the next cycle retry today's export
		if relErr := j.marker.ReleaseLock(ctx, markerName, owner); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return fmt.Errorf("export stats snapshot: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"snapshot_date": day,
		"total_stacks":  summary.TotalStacks,
		"table":         j.table,
	})
	j.logg.Info(logCtx, "stats snapshot exported")
	return nil
}

// snapshotRow is one row of catalog_stats_snapshots. The insert id makes a retried
// streaming insert for the same day a no-op on the BigQuery side.
type snapshotRow struct {
	date    string
	summary *stats.Summary
}

func newSnapshotRow(date string, summary *stats.Summary) *snapshotRow {
	return &snapshotRow{date: date, summary: summary}
}

func (r *snapshotRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"snapshot_date":         r.date,
		"generated_at":          r.summary.GeneratedAt,
		"total_stacks":          r.summary.TotalStacks,
		"pending_contributions": r.summary.PendingContributions,
		"total_users":           r.summary.TotalUsers,
		"industry_stats":        bucketValues(r.summary.IndustryStats),
		"scale_stats":           bucketValues(r.summary.ScaleStats),
	}, "stats-" + r.date, nil
}

func bucketValues(buckets []stats.Bucket) []bigquery.Value {
	out := make([]bigquery.Value, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, map[string]bigquery.Value{"key": b.Key, "count": b.Count})
	}
	return out
}
