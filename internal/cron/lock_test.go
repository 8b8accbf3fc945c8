package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type memoryLockStore struct {
	values  map[string]string
	extends int
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) CompareAndExpire(_ context.Context, key, expected string, _ time.Duration) (bool, error) {
	if m.values[key] != expected {
		return false, nil
	}
	m.extends++
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if m.values[key] != expected {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusiveUntilReleased(t *testing.T) {
	t.Setenv("WORKER_ID", "cron-a")
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "sf:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "sf:lock:cron", time.Minute)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got %v %v", ok, err)
	}
	if !strings.HasPrefix(store.values["sf:lock:cron"], "cron-a:") {
		t.Fatalf("token should carry the instance id, got %q", store.values["sf:lock:cron"])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("expected second acquire to fail while held")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, held := store.values["sf:lock:cron"]; !held {
		t.Fatal("non-owner release must not drop the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected acquire after release")
	}
}

func TestRedisLockExtendDetectsTakeover(t *testing.T) {
	store := newMemoryLockStore()
	lock, _ := NewRedisLock(store, "sf:lock:cron", 0)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	if err := lock.Extend(ctx); err != nil {
		t.Fatalf("extend while owned: %v", err)
	}
	if store.extends != 1 {
		t.Fatalf("expected one extend, got %d", store.extends)
	}

	store.values["sf:lock:cron"] = "other:token"
	if err := lock.Extend(ctx); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release after loss: %v", err)
	}
	if store.values["sf:lock:cron"] != "other:token" {
		t.Fatal("release after loss must leave the new owner alone")
	}
}

func TestRedisLockReleaseToleratesExpiredKey(t *testing.T) {
	store := newMemoryLockStore()
	lock, _ := NewRedisLock(store, "sf:lock:cron", 0)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	delete(store.values, "sf:lock:cron")
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("expected nil on expired key, got %v", err)
	}
}
