package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/db"
)

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("db.Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(ctx, d); err != nil {
		t.Fatalf("db.Migrate() unexpected error: %v", err)
	}
	if _, err := d.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES ('u1', 'x')`); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return NewSQLStore(d)
}

func TestRoleStores(t *testing.T) {
	stores := map[string]func(t *testing.T) core.RoleStore{
		"Memory": func(t *testing.T) core.RoleStore { return NewMemoryStore() },
		"SQL":    func(t *testing.T) core.RoleStore { return newSQLStore(t) },
	}

	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			got, err := store.ListRoles(ctx, "u1")
			if err != nil {
				t.Fatalf("ListRoles() unexpected error: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("ListRoles() = %v, want empty", got)
			}

			for _, r := range []string{"teacher", "ROLE_STUDENT", "TEACHER"} {
				if err := store.AssignRole(ctx, "u1", r); err != nil {
					t.Fatalf("AssignRole(%s) unexpected error: %v", r, err)
				}
			}
			got, _ = store.ListRoles(ctx, "u1")
			if diff := cmp.Diff([]string{"ROLE_STUDENT", "ROLE_TEACHER"}, got); diff != "" {
				t.Errorf("roles mismatch (-want +got):\n%s", diff)
			}

			if err := store.RemoveRole(ctx, "u1", "STUDENT"); err != nil {
				t.Fatalf("RemoveRole() unexpected error: %v", err)
			}
			if err := store.RemoveRole(ctx, "u1", "STUDENT"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("RemoveRole(missing) error = %v, want ErrNotFound", err)
			}
			if err := store.AssignRole(ctx, "u1", "not a role"); err == nil {
				t.Errorf("AssignRole(invalid) expected error")
			}

			got, _ = store.ListRoles(ctx, "u1")
			if diff := cmp.Diff([]string{"ROLE_TEACHER"}, got); diff != "" {
				t.Errorf("roles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSQLStore_UnknownUser(t *testing.T) {
	store := newSQLStore(t)
	if err := store.AssignRole(context.Background(), "ghost", "STUDENT"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("AssignRole(unknown user) error = %v, want ErrNotFound", err)
	}
}
