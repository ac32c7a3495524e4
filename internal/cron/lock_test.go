package cron

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/stackfinderz-backend/pkg/instance"
)

type memoryLockStore struct {
	mu     sync.Mutex
	owners map[string]string
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{owners: map[string]string{}}
}

func (m *memoryLockStore) AcquireLock(_ context.Context, name, owner string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.owners[name]; ok {
		return false, nil
	}
	m.owners[name] = owner
	return true, nil
}

func (m *memoryLockStore) ReleaseLock(_ context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[name] == owner {
		delete(m.owners, name)
	}
	return nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()
	first, err := NewRedisLock(store, "cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, err := NewRedisLock(store, "cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if !strings.HasPrefix(store.owners["cron"], instance.GetID()+":") {
		t.Fatalf("owner should carry the worker id, got %q", store.owners["cron"])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second acquire should fail while held")
	}
	// releasing a lock we never held is a no-op
	if err := second.Release(ctx); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if _, held := store.owners["cron"]; !held {
		t.Fatal("foreign release must not free the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected acquire after release")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "cron", time.Minute); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := NewRedisLock(newMemoryLockStore(), " ", time.Minute); err == nil {
		t.Fatal("expected name error")
	}
	lock, err := NewRedisLock(newMemoryLockStore(), "cron", 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if lock.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", lock.ttl)
	}
}
