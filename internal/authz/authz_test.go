package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/classhub/trustgate/internal/core"
)

func principal(subject string, roles ...string) *core.Principal {
	return &core.Principal{Subject: subject, Roles: core.NewRoleSet(roles...)}
}

func params(kv map[string]string) func(string) string {
	return func(name string) string { return kv[name] }
}

func TestCheck_RoleMembership(t *testing.T) {
	policy := AnyRole(core.RoleTeacher, core.RoleAdmin)

	tests := []struct {
		name      string
		principal *core.Principal
		wantErr   error
	}{
		{name: "No Principal", principal: nil, wantErr: core.ErrMissingCredential},
		{name: "Student Denied", principal: principal("s", core.RoleStudent), wantErr: core.ErrInsufficientRole},
		{name: "Admin Allowed", principal: principal("a", core.RoleAdmin)},
		{name: "Teacher And Student Allowed", principal: principal("t", core.RoleStudent, core.RoleTeacher)},
		{name: "No Roles Denied", principal: principal("n"), wantErr: core.ErrInsufficientRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(context.Background(), policy, Request{Principal: tt.principal})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Fatalf("Check() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				want := 401
				if errors.Is(tt.wantErr, core.ErrInsufficientRole) {
					want = 403
				}
				if got := core.StatusCode(err); got != want {
					t.Errorf("StatusCode() = %d, want %d", got, want)
				}
			}
		})
	}
}

func TestOwnerAndAnyOf(t *testing.T) {
	policy := AnyOf(Owner(PathOwner("id")), AnyRole(core.RoleAdmin))
	ctx := context.Background()

	tests := []struct {
		name      string
		principal *core.Principal
		id        string
		want      bool
	}{
		{name: "Owner", principal: principal("alice", core.RoleStudent), id: "alice", want: true},
		{name: "Other Student", principal: principal("bob", core.RoleStudent), id: "alice", want: false},
		{name: "Admin", principal: principal("root", core.RoleAdmin), id: "alice", want: true},
		{name: "Empty Owner", principal: principal("", core.RoleStudent), id: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Principal: tt.principal, PathValue: params(map[string]string{"id": tt.id})}
			got, err := policy.Allow(ctx, req)
			if err != nil {
				t.Fatalf("Allow() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpr(t *testing.T) {
	policy, err := Expr(`"ADMIN" in roles || (method == "GET" && path startsWith "/api/v1/courses")`)
	if err != nil {
		t.Fatalf("Expr() unexpected error: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{name: "Admin", req: Request{Principal: principal("a", core.RoleAdmin), Method: "DELETE", Path: "/x"}, want: true},
		{name: "Student Read", req: Request{Principal: principal("s", core.RoleStudent), Method: "GET", Path: "/api/v1/courses/1"}, want: true},
		{name: "Student Write", req: Request{Principal: principal("s", core.RoleStudent), Method: "POST", Path: "/api/v1/courses"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.Allow(ctx, tt.req)
			if err != nil {
				t.Fatalf("Allow() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := Expr(`roles + 1`); err == nil {
		t.Errorf("Expr() expected error for non-boolean expression")
	}
	if _, err := Expr(`unknown_var == 1`); err == nil {
		t.Errorf("Expr() expected error for unknown variable")
	}
}

func TestRuleTable(t *testing.T) {
	table, err := CompileRules([]Rule{
		{Name: "grades-write", Method: "post", Path: "/api/v1/grades", Roles: []string{"TEACHER", "ASSISTANT"}},
		{Name: "grades-read", Path: "/api/v1/grades", Roles: []string{"STUDENT", "TEACHER", "ASSISTANT"}},
		{Name: "admin", Path: "/api/v1/admin", Expr: `"ADMIN" in roles`},
	})
	if err != nil {
		t.Fatalf("CompileRules() unexpected error: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}

	ctx := context.Background()
	student := principal("s", core.RoleStudent)
	teacher := principal("t", core.RoleTeacher)

	tests := []struct {
		name   string
		p      *core.Principal
		method string
		path   string
		want   bool
	}{
		{name: "Student Reads Grades", p: student, method: "GET", path: "/api/v1/grades/7", want: true},
		{name: "Student Writes Grades", p: student, method: "POST", path: "/api/v1/grades", want: false},
		{name: "Teacher Writes Grades", p: teacher, method: "POST", path: "/api/v1/grades", want: true},
		{name: "Teacher Admin Area", p: teacher, method: "GET", path: "/api/v1/admin/audits", want: false},
		{name: "Unmatched Path", p: student, method: "GET", path: "/api/v1/me", want: true},
		{name: "Sibling Of Admin Prefix", p: teacher, method: "GET", path: "/api/v1/administrator", want: true},
		{name: "Sibling Of Grades Prefix", p: student, method: "POST", path: "/api/v1/gradesheet", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Allow(ctx, Request{Principal: tt.p, Method: tt.method, Path: tt.path})
			if err != nil {
				t.Fatalf("Allow() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileRules_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{name: "Missing Name", rules: []Rule{{Path: "/a", Roles: []string{"ADMIN"}}}},
		{name: "Duplicate Name", rules: []Rule{{Name: "a", Path: "/a", Roles: []string{"ADMIN"}}, {Name: "a", Path: "/b", Roles: []string{"ADMIN"}}}},
		{name: "Relative Path", rules: []Rule{{Name: "a", Path: "a", Roles: []string{"ADMIN"}}}},
		{name: "Unknown Method", rules: []Rule{{Name: "a", Method: "FETCH", Path: "/a", Roles: []string{"ADMIN"}}}},
		{name: "No Condition", rules: []Rule{{Name: "a", Path: "/a"}}},
		{name: "Bad Role", rules: []Rule{{Name: "a", Path: "/a", Roles: []string{"no role"}}}},
		{name: "Bad Expr", rules: []Rule{{Name: "a", Path: "/a", Expr: "roles +"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CompileRules(tt.rules); err == nil {
				t.Errorf("CompileRules() expected error")
			}
		})
	}
}

func TestCanAssign(t *testing.T) {
	tests := []struct {
		actor []string
		role  string
		want  bool
	}{
		{actor: []string{core.RoleAdmin}, role: core.RoleAdmin, want: true},
		{actor: []string{core.RoleAdmin}, role: "CUSTOM_ROLE", want: true},
		{actor: []string{core.RoleTeacher}, role: core.RoleTeacher, want: true},
		{actor: []string{core.RoleTeacher}, role: core.RoleStudent, want: true},
		{actor: []string{core.RoleTeacher}, role: core.RoleAdmin, want: false},
		{actor: []string{core.RoleAssistant}, role: core.RoleStudent, want: true},
		{actor: []string{core.RoleAssistant}, role: core.RoleTeacher, want: false},
		{actor: []string{core.RoleStudent}, role: core.RoleStudent, want: false},
		{actor: []string{core.RoleStudent, core.RoleAssistant}, role: core.RoleAssistant, want: true},
		{actor: nil, role: core.RoleStudent, want: false},
	}
	for _, tt := range tests {
		t.Run(core.NewRoleSet(tt.actor...).String()+"->"+tt.role, func(t *testing.T) {
			err := CanAssign(core.NewRoleSet(tt.actor...), tt.role)
			if tt.want && err != nil {
				t.Errorf("CanAssign() unexpected error: %v", err)
			}
			if !tt.want && !errors.Is(err, core.ErrInsufficientPermissions) {
				t.Errorf("CanAssign() error = %v, want ErrInsufficientPermissions", err)
			}
		})
	}
}
