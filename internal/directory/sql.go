package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/db"
)

var _ core.Directory = (*SQLDirectory)(nil)

// SQLDirectory authenticates against the users table and reads roles from a RoleStore.
type SQLDirectory struct {
	db    *db.DB
	roles core.RoleStore
}

func NewSQLDirectory(d *db.DB, roles core.RoleStore) *SQLDirectory {
	return &SQLDirectory{db: d, roles: roles}
}

func (s *SQLDirectory) Authenticate(ctx context.Context, username, password string) (*core.Identity, error) {
	var (
		hash    string
		deleted bool
	)
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT password_hash, deleted FROM users WHERE username = ?`), username).
		Scan(&hash, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		_ = passwordMatches(string(dummyHash), password)
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: looking up user: %w", core.ErrUpstreamUnavailable, err)
	}

	if !passwordMatches(hash, password) {
		return nil, core.ErrInvalidCredentials
	}
	if deleted {
		return nil, core.ErrAccountDeleted
	}

	roles, err := s.roles.ListRoles(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("listing roles of %s: %w", username, err)
	}
	return &core.Identity{Subject: username, Roles: roles}, nil
}

// CreateUser inserts a user with a bcrypt-hashed password and assigns the given roles.
func (s *SQLDirectory) CreateUser(ctx context.Context, username, password string, roles ...string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO users (username, password_hash) VALUES (?, ?)`), username, hash); err != nil {
		return fmt.Errorf("inserting user %s: %w", username, err)
	}
	for _, role := range roles {
		if err := s.roles.AssignRole(ctx, username, role); err != nil {
			return fmt.Errorf("assigning %s to %s: %w", role, username, err)
		}
	}
	return nil
}

// DeleteUser soft-deletes a user. Its roles are kept.
func (s *SQLDirectory) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE users SET deleted = ? WHERE username = ?`), true, username)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
