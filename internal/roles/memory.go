// Package roles stores role assignments per user.
package roles

import (
	"context"
	"sync"

	"github.com/classhub/trustgate/internal/core"
)

var _ core.RoleStore = (*MemoryStore)(nil)

type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]core.RoleSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assignments: make(map[string]core.RoleSet)}
}

func (m *MemoryStore) ListRoles(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assignments[userID].Canonical(), nil
}

func (m *MemoryStore) AssignRole(_ context.Context, userID, roleID string) error {
	role, err := core.NormalizeRole(roleID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.assignments[userID]
	if !ok {
		set = core.RoleSet{}
		m.assignments[userID] = set
	}
	set[role] = struct{}{}
	return nil
}

func (m *MemoryStore) RemoveRole(_ context.Context, userID, roleID string) error {
	role, err := core.NormalizeRole(roleID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.assignments[userID]
	if !ok || !set.Has(role) {
		return core.ErrNotFound
	}
	delete(set, role)
	return nil
}
