package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/classhub/trustgate/internal/core"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client, "", ttl)
	if err != nil {
		t.Fatalf("NewRedisStore() unexpected error: %v", err)
	}
	return store, mr
}

func TestRedisStore_AddAndContains(t *testing.T) {
	store, mr := newRedisStore(t, 2*time.Hour)
	ctx := context.Background()

	if err := store.Add(ctx, "token-1"); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if ok, err := store.Contains(ctx, "token-1"); err != nil || !ok {
		t.Errorf("Contains(token-1) = %v, %v; want true", ok, err)
	}
	if ok, err := store.Contains(ctx, "token-2"); err != nil || ok {
		t.Errorf("Contains(token-2) = %v, %v; want false", ok, err)
	}

	// TTL is the store's maximum lifetime window, not the token's own expiry
	if got := mr.TTL(DefaultKeyPrefix + "token-1"); got != 2*time.Hour {
		t.Errorf("TTL = %s, want 2h", got)
	}

	mr.FastForward(2*time.Hour + time.Second)
	if ok, _ := store.Contains(ctx, "token-1"); ok {
		t.Error("entry should have expired")
	}
}

func TestRedisStore_Unreachable(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	mr.Close()

	ctx := context.Background()
	if _, err := store.Contains(ctx, "token-1"); !errors.Is(err, core.ErrUpstreamUnavailable) {
		t.Errorf("Contains() error = %v, want ErrUpstreamUnavailable", err)
	}
	if err := store.Add(ctx, "token-1"); !errors.Is(err, core.ErrUpstreamUnavailable) {
		t.Errorf("Add() error = %v, want ErrUpstreamUnavailable", err)
	}
}
