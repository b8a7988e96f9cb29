package refresh

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/classhub/trustgate/internal/core"
)

var _ core.RefreshStore = (*MemoryStore)(nil)

type memoryRecord struct {
	core.RefreshRecord
	used bool
}

// MemoryStore keeps refresh records in process memory.
// Consumed records are retained until their expiry to detect reuse.
type MemoryStore struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	records  map[string]*memoryRecord
	families map[string][]string
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:    clock,
		records:  make(map[string]*memoryRecord),
		families: make(map[string][]string),
	}
}

func (m *MemoryStore) Save(_ context.Context, hash string, rec core.RefreshRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[hash] = &memoryRecord{RefreshRecord: rec}
	m.families[rec.FamilyID] = append(m.families[rec.FamilyID], hash)
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, hash string) (*core.RefreshRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[hash]
	if !ok {
		return nil, core.ErrInvalidRefreshToken
	}
	if !m.clock.Now().Before(rec.ExpiresAt) {
		delete(m.records, hash)
		return nil, core.ErrInvalidRefreshToken
	}
	if rec.used {
		return &core.RefreshRecord{FamilyID: rec.FamilyID, Subject: rec.Subject}, core.ErrRefreshReused
	}

	rec.used = true
	out := rec.RefreshRecord
	return &out, nil
}

func (m *MemoryStore) RevokeFamily(_ context.Context, familyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hash := range m.families[familyID] {
		delete(m.records, hash)
	}
	delete(m.families, familyID)
	return nil
}

// DeleteExpired drops records past their expiry and returns how many were removed.
func (m *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	var deletedCount int64
	for hash, rec := range m.records {
		if !now.Before(rec.ExpiresAt) {
			delete(m.records, hash)
			deletedCount++
		}
	}
	for fid, hashes := range m.families {
		alive := hashes[:0]
		for _, h := range hashes {
			if _, ok := m.records[h]; ok {
				alive = append(alive, h)
			}
		}
		if len(alive) == 0 {
			delete(m.families, fid)
		} else {
			m.families[fid] = alive
		}
	}
	return deletedCount, nil
}
