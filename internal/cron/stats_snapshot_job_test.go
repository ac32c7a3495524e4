package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/stackfinderz-backend/internal/stats"
)

type fakeStats struct {
	summary *stats.Summary
	err     error
	calls   int
}

func (f *fakeStats) Get(context.Context) (*stats.Summary, error) {
	f.calls++
	return f.summary, f.err
}

type fakeInserter struct {
	tables []string
	rows   []any
	err    error
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	if f.err != nil {
		return f.err
	}
	f.tables = append(f.tables, table)
	f.rows = append(f.rows, rows...)
	return nil
}

func newSnapshotJob(t *testing.T, source *fakeStats, inserter *fakeInserter, marker *memoryLockStore, now time.Time) *statsSnapshotJob {
	t.Helper()
	jobIface, err := NewStatsSnapshotJob(StatsSnapshotJobParams{
		Logger:   testLogger(),
		Stats:    source,
		Inserter: inserter,
		Table:    "catalog_stats_snapshots",
		Marker:   marker,
	})
	if err != nil {
		t.Fatalf("NewStatsSnapshotJob: %v", err)
	}
	job := jobIface.(*statsSnapshotJob)
	job.now = func() time.Time { return now }
	return job
}

func TestStatsSnapshotExportsOncePerDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	source := &fakeStats{summary: &stats.Summary{
		TotalStacks:   6,
		TotalUsers:    2,
		IndustryStats: []stats.Bucket{{Key: "SaaS", Count: 4}, {Key: "Fintech", Count: 2}},
		ScaleStats:    []stats.Bucket{{Key: "Public", Count: 6}},
		GeneratedAt:   now,
	}}
	inserter := &fakeInserter{}
	marker := newMemoryLockStore()
	job := newSnapshotJob(t, source, inserter, marker, now)

	for i := 0; i < 3; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	if source.calls != 1 || len(inserter.rows) != 1 {
		t.Fatalf("expected a single export, got %d stats calls and %d rows", source.calls, len(inserter.rows))
	}
	if inserter.tables[0] != "catalog_stats_snapshots" {
		t.Fatalf("unexpected table %q", inserter.tables[0])
	}

	row, ok := inserter.rows[0].(*snapshotRow)
	if !ok {
		t.Fatalf("expected snapshotRow, got %T", inserter.rows[0])
	}
	values, insertID, err := row.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if insertID != "stats-2026-03-01" {
		t.Fatalf("unexpected insert id %q", insertID)
	}
	if values["total_stacks"] != int64(6) || values["snapshot_date"] != "2026-03-01" {
		t.Fatalf("unexpected values %v", values)
	}

	job.now = func() time.Time { return now.Add(24 * time.Hour) }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("next day Run: %v", err)
	}
	if len(inserter.rows) != 2 {
		t.Fatalf("expected a new export on the next day, got %d rows", len(inserter.rows))
	}
}

func TestStatsSnapshotRetriesAfterFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	source := &fakeStats{summary: &stats.Summary{GeneratedAt: now}}
	inserter := &fakeInserter{err: errors.New("bigquery unavailable")}
	marker := newMemoryLockStore()
	job := newSnapshotJob(t, source, inserter, marker, now)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected export error")
	}
	if len(marker.owners) != 0 {
		t.Fatal("failed export must clear the day marker")
	}

	inserter.err = nil
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("expected retry to export, got %d rows", len(inserter.rows))
	}
}
