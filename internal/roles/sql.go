package roles

import (
	"context"
	"fmt"

	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/db"
)

var _ core.RoleStore = (*SQLStore)(nil)

// SQLStore keeps assignments in the user_roles table.
type SQLStore struct {
	db *db.DB
}

func NewSQLStore(d *db.DB) *SQLStore {
	return &SQLStore{db: d}
}

func (s *SQLStore) ListRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind(`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`), userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing roles: %w", core.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *SQLStore) AssignRole(ctx context.Context, userID, roleID string) error {
	role, err := core.NormalizeRole(roleID)
	if err != nil {
		return err
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`), userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: looking up user: %w", core.ErrUpstreamUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO user_roles (user_id, role) VALUES (?, ?) ON CONFLICT (user_id, role) DO NOTHING`),
		userID, role)
	if err != nil {
		return fmt.Errorf("%w: assigning role: %w", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *SQLStore) RemoveRole(ctx context.Context, userID, roleID string) error {
	role, err := core.NormalizeRole(roleID)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM user_roles WHERE user_id = ? AND role = ?`), userID, role)
	if err != nil {
		return fmt.Errorf("%w: removing role: %w", core.ErrUpstreamUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
