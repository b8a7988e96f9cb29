package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/classhub/trustgate/internal/core"
)

type fakeDeleter struct {
	n   int64
	err error
}

func (f fakeDeleter) DeleteExpired(context.Context) (int64, error) {
	return f.n, f.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_Trigger(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	m := NewManager(clock)
	m.Register(PruneRefreshTokens, 0, Prune(fakeDeleter{n: 3}))
	m.Register("broken", 0, Prune(fakeDeleter{err: errors.New("disk on fire")}))

	if err := m.Trigger(t.Context(), PruneRefreshTokens); err != nil {
		t.Fatalf("Trigger() unexpected error: %v", err)
	}
	if err := m.Trigger(t.Context(), "broken"); err != nil {
		t.Fatalf("Trigger() unexpected error: %v", err)
	}
	m.Wait()

	want := []TaskStatus{
		{Name: "broken", LastRun: clock.Now(), LastResult: "failed: disk on fire"},
		{Name: PruneRefreshTokens, LastRun: clock.Now(), LastResult: "success"},
	}
	if diff := cmp.Diff(want, m.ListStatus()); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}

	logs, err := m.GetLogs(PruneRefreshTokens)
	if err != nil {
		t.Fatalf("GetLogs() unexpected error: %v", err)
	}
	var messages []string
	for _, l := range logs {
		messages = append(messages, l.Message)
	}
	wantMessages := []string{"starting task execution", "pruned expired entries", "task completed successfully"}
	if diff := cmp.Diff(wantMessages, messages); diff != "" {
		t.Errorf("logs mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Unknown(t *testing.T) {
	m := NewManager(nil)
	if err := m.Trigger(t.Context(), "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Trigger() error = %v, want ErrNotFound", err)
	}
	if _, err := m.GetLogs("nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetLogs() error = %v, want ErrNotFound", err)
	}
}

func TestManager_Schedule(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock)

	runs := make(chan struct{}, 10)
	m.Register("tick", time.Minute, func(context.Context, zerolog.Logger) error {
		runs <- struct{}{}
		return nil
	})
	m.Register("manual", 0, func(context.Context, zerolog.Logger) error {
		t.Errorf("manual task must not be scheduled")
		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	m.Start(ctx)

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("BlockUntilContext() unexpected error: %v", err)
	}
	status := m.ListStatus()
	if got := status[1].NextRun; !got.Equal(clock.Now().Add(time.Minute)) {
		t.Errorf("next run = %v, want %v", got, clock.Now().Add(time.Minute))
	}

	clock.Advance(time.Minute)
	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduled task did not run")
	}
	waitFor(t, func() bool { return m.ListStatus()[1].LastResult == "success" })

	cancel()
	m.Wait()
}
