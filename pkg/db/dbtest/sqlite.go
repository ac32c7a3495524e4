// Package dbtest opens throwaway sqlite databases carrying the application schema.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE stacks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		industry TEXT NOT NULL,
		scale TEXT NOT NULL,
		location TEXT NOT NULL,
		description TEXT NOT NULL,
		founded INTEGER,
		employees TEXT NOT NULL DEFAULT '',
		funding TEXT NOT NULL DEFAULT '',
		website TEXT,
		logo TEXT,
		tech_stack TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'approved',
		contributed_by TEXT,
		promoted_from TEXT,
		promoted_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_stacks_promoted_from ON stacks (promoted_from)`,
	`CREATE TABLE contributions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		industry TEXT NOT NULL,
		scale TEXT NOT NULL,
		location TEXT NOT NULL,
		description TEXT NOT NULL,
		founded INTEGER,
		employees TEXT NOT NULL DEFAULT '',
		funding TEXT NOT NULL DEFAULT '',
		website TEXT,
		tech_stack TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'pending',
		submitted_by TEXT NOT NULL,
		submitted_at DATETIME NOT NULL,
		reviewed_by TEXT,
		reviewed_at DATETIME,
		admin_notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE bookmarks (
		user_id TEXT NOT NULL,
		stack_id TEXT NOT NULL,
		created_at DATETIME,
		PRIMARY KEY (user_id, stack_id)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME NOT NULL
	)`,
}

// Open returns an isolated in-memory database with every application table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// a single connection keeps the shared in-memory database alive and serializes writes
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
