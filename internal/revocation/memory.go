package revocation

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/classhub/trustgate/internal/core"
)

var _ core.RevocationStore = (*MemoryStore)(nil)

// ErrStoreFull is returned by Add when MaxEntries live revocations are held.
// Live entries are never evicted to make room.
var ErrStoreFull = errors.New("revocation store is full")

const (
	shardCount        = 32
	DefaultMaxEntries = 1 << 20
)

type shard struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> expiry
}

// MemoryStore is a process-local revocation store. Entries are spread over
// independently locked shards and stay until their TTL has passed. Expired
// entries are swept by DeleteExpired, which Add also runs once the store is full.
type MemoryStore struct {
	shards [shardCount]*shard
	seed   maphash.Seed
	ttl    time.Duration
	max    int64
	count  atomic.Int64
	clock  clockwork.Clock
}

type MemoryOption func(*MemoryStore)

func WithClock(clock clockwork.Clock) MemoryOption {
	return func(m *MemoryStore) {
		m.clock = clock
	}
}

func NewMemoryStore(ttl time.Duration, maxEntries int64, opts ...MemoryOption) (*MemoryStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("revocation ttl must be positive, got %s", ttl)
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	m := &MemoryStore{
		seed:  maphash.MakeSeed(),
		ttl:   ttl,
		max:   maxEntries,
		clock: clockwork.NewRealClock(),
	}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]time.Time)}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *MemoryStore) shardFor(tokenID string) *shard {
	return m.shards[maphash.String(m.seed, tokenID)%shardCount]
}

func (m *MemoryStore) Add(ctx context.Context, tokenID string) error {
	if m.count.Load() >= m.max {
		_, _ = m.DeleteExpired(ctx)
	}

	now := m.clock.Now()
	s := m.shardFor(tokenID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[tokenID]; ok {
		// live or not yet swept, either way the slot is already counted
		s.entries[tokenID] = maxTime(s.entries[tokenID], now.Add(m.ttl))
		return nil
	}
	if m.count.Add(1) > m.max {
		m.count.Add(-1)
		return fmt.Errorf("%w: %d live entries", ErrStoreFull, m.max)
	}
	s.entries[tokenID] = now.Add(m.ttl)
	return nil
}

func (m *MemoryStore) Contains(_ context.Context, tokenID string) (bool, error) {
	s := m.shardFor(tokenID)
	s.mu.RLock()
	exp, ok := s.entries[tokenID]
	s.mu.RUnlock()
	return ok && m.clock.Now().Before(exp), nil
}

// Len returns the number of held entries, expired ones not yet swept included.
func (m *MemoryStore) Len() int64 {
	return m.count.Load()
}

// DeleteExpired removes every entry whose TTL has passed.
func (m *MemoryStore) DeleteExpired(context.Context) (int64, error) {
	now := m.clock.Now()
	var total int64
	for _, s := range m.shards {
		s.mu.Lock()
		total += sweep(s, now)
		s.mu.Unlock()
	}
	m.count.Add(-total)
	return total, nil
}

// Close drops all entries.
func (m *MemoryStore) Close() {
	for _, s := range m.shards {
		s.mu.Lock()
		m.count.Add(-int64(len(s.entries)))
		clear(s.entries)
		s.mu.Unlock()
	}
}

// sweep expects s.mu to be held.
func sweep(s *shard, now time.Time) int64 {
	var n int64
	for id, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
