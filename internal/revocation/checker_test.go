package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/classhub/trustgate/internal/metrics"
)

type failingStore struct{}

func (failingStore) Add(context.Context, string) error { return errors.New("connection refused") }

func (failingStore) Contains(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

type blockingStore struct{}

func (blockingStore) Add(context.Context, string) error { return nil }

func (blockingStore) Contains(ctx context.Context, _ string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func TestChecker_Revoked(t *testing.T) {
	store, err := NewMemoryStore(time.Hour, 100)
	if err != nil {
		t.Fatalf("NewMemoryStore() unexpected error: %v", err)
	}
	defer store.Close()
	if err := store.Add(context.Background(), "token-1"); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	checker := NewChecker(store, time.Second)
	if !checker.IsRevoked(context.Background(), "token-1") {
		t.Error("IsRevoked(token-1) = false, want true")
	}
	if checker.IsRevoked(context.Background(), "token-2") {
		t.Error("IsRevoked(token-2) = true, want false")
	}
}

func TestChecker_FailsOpen(t *testing.T) {
	before := testutil.ToFloat64(metrics.RevocationFailOpen)

	checker := NewChecker(failingStore{}, time.Second)
	if checker.IsRevoked(context.Background(), "token-1") {
		t.Error("IsRevoked() = true on store failure, want fail-open false")
	}

	if got := testutil.ToFloat64(metrics.RevocationFailOpen) - before; got != 1 {
		t.Errorf("fail-open counter increased by %v, want 1", got)
	}
}

func TestChecker_TimeoutFailsOpen(t *testing.T) {
	checker := NewChecker(blockingStore{}, 20*time.Millisecond)

	start := time.Now()
	if checker.IsRevoked(context.Background(), "token-1") {
		t.Error("IsRevoked() = true on timeout, want fail-open false")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("IsRevoked() took %s, timeout not applied", elapsed)
	}
}

type countingStore struct {
	revoked map[string]bool
	calls   int
}

func (s *countingStore) Add(_ context.Context, id string) error {
	s.revoked[id] = true
	return nil
}

func (s *countingStore) Contains(_ context.Context, id string) (bool, error) {
	s.calls++
	return s.revoked[id], nil
}

func TestCachedChecker_RemembersHitsOnly(t *testing.T) {
	store := &countingStore{revoked: map[string]bool{"token-1": true}}
	checker, err := NewCachedChecker(store, time.Second, time.Minute, 100)
	if err != nil {
		t.Fatalf("NewCachedChecker() unexpected error: %v", err)
	}
	defer checker.Close()
	ctx := context.Background()

	if !checker.IsRevoked(ctx, "token-1") {
		t.Fatal("IsRevoked(token-1) = false, want true")
	}
	checker.hits.Wait()
	if !checker.IsRevoked(ctx, "token-1") {
		t.Fatal("IsRevoked(token-1) = false on second lookup")
	}
	if store.calls != 1 {
		t.Errorf("store consulted %d times for a cached hit, want 1", store.calls)
	}

	// misses go to the store every time, a later revocation is seen at once
	if checker.IsRevoked(ctx, "token-2") {
		t.Fatal("IsRevoked(token-2) = true, want false")
	}
	_ = store.Add(ctx, "token-2")
	if !checker.IsRevoked(ctx, "token-2") {
		t.Error("IsRevoked(token-2) = false after revocation, misses must not be cached")
	}
}

func TestNewCachedChecker_Invalid(t *testing.T) {
	if _, err := NewCachedChecker(failingStore{}, time.Second, 0, 10); err == nil {
		t.Error("NewCachedChecker(ttl 0) expected error")
	}
}
