package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/classhub/trustgate/internal/audit"
	"github.com/classhub/trustgate/internal/authz"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/refresh"
	"github.com/classhub/trustgate/internal/revocation"
	"github.com/classhub/trustgate/internal/roles"
	"github.com/classhub/trustgate/internal/token"
)

var testEpoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

const testSecret token.Secret = "0123456789abcdef0123456789abcdef"

type fakeUser struct {
	password string
	roles    []string
	deleted  bool
}

type fakeDirectory map[string]fakeUser

func (d fakeDirectory) Authenticate(_ context.Context, username, password string) (*core.Identity, error) {
	u, ok := d[username]
	if !ok || u.password != password {
		return nil, core.ErrInvalidCredentials
	}
	if u.deleted {
		return nil, core.ErrAccountDeleted
	}
	return &core.Identity{Subject: username, Roles: u.roles}, nil
}

type slowDirectory struct{}

func (slowDirectory) Authenticate(ctx context.Context, _, _ string) (*core.Identity, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fixture struct {
	clock    *clockwork.FakeClock
	verifier *token.Verifier
	auditor  *audit.InMemoryAuditor
	auth     *AuthService
}

func newFixture(t *testing.T, dir core.Directory, revokeOnLogout bool) *fixture {
	t.Helper()
	return newFixtureWithRefresh(t, dir, revokeOnLogout, nil)
}

// newFixtureWithRefresh uses an in-memory refresh store when store is nil.
func newFixtureWithRefresh(t *testing.T, dir core.Directory, revokeOnLogout bool, store core.RefreshStore) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testEpoch)
	if store == nil {
		store = refresh.NewMemoryStore(clock)
	}

	keys, err := token.NewKeyring("k1", testSecret, nil)
	if err != nil {
		t.Fatalf("NewKeyring() unexpected error: %v", err)
	}
	codec := token.NewCodec(keys, token.Options{Issuer: "trustgate", AccessTTL: 15 * time.Minute, Clock: clock})

	revocations, err := revocation.NewMemoryStore(time.Hour, 1000)
	if err != nil {
		t.Fatalf("revocation.NewMemoryStore() unexpected error: %v", err)
	}
	t.Cleanup(revocations.Close)
	verifier := token.NewVerifier(codec, revocation.NewChecker(revocations, 0))

	auditor := audit.NewInMemoryAuditor(0)
	auth, err := NewAuthService(AuthConfig{
		DefaultRole:      core.RoleStudent,
		DirectoryTimeout: 50 * time.Millisecond,
		RefreshTTL:       24 * time.Hour,
		RevokeOnLogout:   revokeOnLogout,
	}, dir, verifier, store, revocations, auditor, clock)
	if err != nil {
		t.Fatalf("NewAuthService() unexpected error: %v", err)
	}
	return &fixture{clock: clock, verifier: verifier, auditor: auditor, auth: auth}
}

var users = fakeDirectory{
	"alice": {password: "pw-alice", roles: []string{core.RoleStudent}},
	"nora":  {password: "pw-nora"},
	"dave":  {password: "pw-dave", roles: []string{core.RoleTeacher}, deleted: true},
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t, users, true)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice", SourceIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if pair.TokenType != TokenTypeBearer {
		t.Errorf("TokenType = %q, want %q", pair.TokenType, TokenTypeBearer)
	}
	if pair.ExpiresIn <= f.clock.Now().Unix() {
		t.Errorf("ExpiresIn = %d, want > now (%d)", pair.ExpiresIn, f.clock.Now().Unix())
	}
	if pair.RefreshToken == "" {
		t.Errorf("RefreshToken is empty")
	}

	p, err := f.verifier.Verify(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if p.Subject != "alice" {
		t.Errorf("Subject = %q, want alice", p.Subject)
	}
	if diff := cmp.Diff([]string{"ROLE_STUDENT"}, p.Roles.Canonical()); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}

	entries, _ := f.auditor.GetRecent(1)
	if len(entries) != 1 || !entries[0].Granted || entries[0].Subject != "alice" || entries[0].SourceIP != "10.0.0.1" {
		t.Errorf("audit entry = %+v, want granted login for alice", entries)
	}
}

func TestAuthService_LoginDefaultRole(t *testing.T) {
	f := newFixture(t, users, true)
	pair, err := f.auth.Login(context.Background(), LoginRequest{Username: "nora", Password: "pw-nora"})
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"ROLE_STUDENT"}, pair.User.Roles.Canonical()); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
}

func TestAuthService_LoginRejected(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		password   string
		wantErr    error
		wantReason string
	}{
		{name: "Wrong Password", username: "alice", password: "nope", wantErr: core.ErrInvalidCredentials, wantReason: "invalid credentials"},
		{name: "Unknown User", username: "mallory", password: "x", wantErr: core.ErrInvalidCredentials, wantReason: "invalid credentials"},
		{name: "Deleted Account", username: "dave", password: "pw-dave", wantErr: core.ErrAccountDeleted, wantReason: "account deleted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, users, true)
			_, err := f.auth.Login(context.Background(), LoginRequest{
				Username: tt.username,
				Password: tt.password,
				SourceIP: "192.0.2.7",
				Device:   "curl/8",
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if got := core.PublicMessage(err); got != "invalid username or password" {
				t.Errorf("PublicMessage() = %q, want generic message", got)
			}
			if got := core.StatusCode(err); got != 401 {
				t.Errorf("StatusCode() = %d, want 401", got)
			}

			entries, _ := f.auditor.GetRecent(0)
			want := []core.AuditEntry{{
				Time:     testEpoch,
				Action:   "auth.login",
				Username: tt.username,
				SourceIP: "192.0.2.7",
				Device:   "curl/8",
				Granted:  false,
				Reason:   tt.wantReason,
			}}
			if diff := cmp.Diff(want, entries); diff != "" {
				t.Errorf("audit mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAuthService_LoginDirectoryTimeout(t *testing.T) {
	f := newFixture(t, slowDirectory{}, true)
	_, err := f.auth.Login(context.Background(), LoginRequest{Username: "alice", Password: "pw"})
	if !errors.Is(err, core.ErrUpstreamUnavailable) {
		t.Fatalf("Login() error = %v, want ErrUpstreamUnavailable", err)
	}
	if got := core.StatusCode(err); got != 503 {
		t.Errorf("StatusCode() = %d, want 503", got)
	}
}

func TestAuthService_Logout(t *testing.T) {
	tests := []struct {
		name           string
		revokeOnLogout bool
		wantErr        error
	}{
		{name: "Revoking", revokeOnLogout: true, wantErr: core.ErrRevokedToken},
		{name: "Non Revoking", revokeOnLogout: false, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, users, tt.revokeOnLogout)
			ctx := context.Background()

			pair, err := f.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
			if err != nil {
				t.Fatalf("Login() unexpected error: %v", err)
			}
			if err := f.auth.Logout(ctx, pair.AccessToken, ""); err != nil {
				t.Fatalf("Logout() unexpected error: %v", err)
			}

			_, err = f.verifier.Verify(ctx, pair.AccessToken)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("Verify() after logout error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_LogoutUndecodableToken(t *testing.T) {
	f := newFixture(t, users, true)
	if err := f.auth.Logout(context.Background(), "not-a-token", ""); err != nil {
		t.Errorf("Logout(garbage) error = %v, want success", err)
	}
	entries, _ := f.auditor.GetRecent(1)
	if len(entries) != 1 || entries[0].Subject != "" || entries[0].Action != "auth.logout" {
		t.Errorf("audit entry = %+v, want logout without subject", entries)
	}
}

func TestAuthService_LogoutRevokesRefreshFamily(t *testing.T) {
	f := newFixture(t, users, true)
	ctx := context.Background()

	pair, _ := f.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
	if err := f.auth.Logout(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("Logout() unexpected error: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, pair.RefreshToken); !errors.Is(err, core.ErrInvalidRefreshToken) {
		t.Errorf("Refresh() after logout error = %v, want ErrInvalidRefreshToken", err)
	}
}

// unreachableRefreshStore saves normally but fails every Consume.
type unreachableRefreshStore struct {
	core.RefreshStore
}

var errRefreshBackendDown = errors.New("refresh backend down")

func (unreachableRefreshStore) Consume(context.Context, string) (*core.RefreshRecord, error) {
	return nil, errRefreshBackendDown
}

func TestAuthService_LogoutReportsRefreshStoreFailure(t *testing.T) {
	store := unreachableRefreshStore{RefreshStore: refresh.NewMemoryStore(clockwork.NewFakeClockAt(testEpoch))}
	f := newFixtureWithRefresh(t, users, true, store)
	ctx := context.Background()

	pair, err := f.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}

	err = f.auth.Logout(ctx, pair.AccessToken, pair.RefreshToken)
	if !errors.Is(err, core.ErrUpstreamUnavailable) || !errors.Is(err, errRefreshBackendDown) {
		t.Fatalf("Logout() error = %v, want ErrUpstreamUnavailable wrapping the store error", err)
	}
	if got := core.StatusCode(err); got != 503 {
		t.Errorf("StatusCode() = %d, want 503", got)
	}

	entries, _ := f.auditor.GetRecent(1)
	if len(entries) != 1 || entries[0].Granted {
		t.Errorf("audit entry = %+v, want a denied logout", entries)
	}
}

func TestAuthService_LogoutUnknownRefreshToken(t *testing.T) {
	f := newFixture(t, users, true)
	ctx := context.Background()

	pair, _ := f.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
	if err := f.auth.Logout(ctx, pair.AccessToken, "deadbeef"); err != nil {
		t.Errorf("Logout(unknown refresh) error = %v, want success", err)
	}
}

func TestAuthService_RefreshRotation(t *testing.T) {
	f := newFixture(t, users, true)
	ctx := context.Background()

	first, err := f.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	second, err := f.auth.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Errorf("refresh token was not rotated")
	}
	if second.ExpiresIn <= first.ExpiresIn {
		t.Errorf("ExpiresIn = %d, want later than %d", second.ExpiresIn, first.ExpiresIn)
	}
	p, err := f.verifier.Verify(ctx, second.AccessToken)
	if err != nil {
		t.Fatalf("Verify(refreshed) unexpected error: %v", err)
	}
	if p.Subject != "alice" || !p.Roles.Equal(first.User.Roles) {
		t.Errorf("refreshed principal = %+v, want alice with %v", p, first.User.Roles)
	}

	// reusing the consumed token revokes the family, including the rotated token
	if _, err := f.auth.Refresh(ctx, first.RefreshToken); !errors.Is(err, core.ErrRefreshReused) {
		t.Fatalf("Refresh(reused) error = %v, want ErrRefreshReused", err)
	}
	if _, err := f.auth.Refresh(ctx, second.RefreshToken); !errors.Is(err, core.ErrInvalidRefreshToken) {
		t.Errorf("Refresh(rotated after reuse) error = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestAuthService_RefreshRejected(t *testing.T) {
	f := newFixture(t, users, true)
	ctx := context.Background()

	for _, tok := range []string{"", "deadbeef"} {
		if _, err := f.auth.Refresh(ctx, tok); !errors.Is(err, core.ErrInvalidRefreshToken) {
			t.Errorf("Refresh(%q) error = %v, want ErrInvalidRefreshToken", tok, err)
		}
	}

	pair, _ := f.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})
	f.clock.Advance(25 * time.Hour)
	if _, err := f.auth.Refresh(ctx, pair.RefreshToken); !errors.Is(err, core.ErrInvalidRefreshToken) {
		t.Errorf("Refresh(expired) error = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestAuthService_UsernameFromToken(t *testing.T) {
	f := newFixture(t, users, true)
	pair, _ := f.auth.Login(context.Background(), LoginRequest{Username: "alice", Password: "pw-alice"})

	f.clock.Advance(time.Hour)
	if f.auth.ValidateToken(context.Background(), pair.AccessToken) {
		t.Errorf("ValidateToken(expired) = true")
	}
	got, err := f.auth.UsernameFromToken(pair.AccessToken)
	if err != nil || got != "alice" {
		t.Errorf("UsernameFromToken(expired) = %q, %v; want alice", got, err)
	}

	for _, raw := range []string{"", "a.b", "garbage"} {
		if _, err := f.auth.UsernameFromToken(raw); !errors.Is(err, core.ErrMalformedToken) {
			t.Errorf("UsernameFromToken(%q) error = %v, want ErrMalformedToken", raw, err)
		}
	}
}

func TestRoleService_Governance(t *testing.T) {
	ctx := context.Background()
	store := roles.NewMemoryStore()
	svc := NewRoleService(store, audit.NewNoopAuditor(), clockwork.NewFakeClockAt(testEpoch))

	admin := &core.Principal{Subject: "root", Roles: core.NewRoleSet(core.RoleAdmin)}
	if err := svc.Assign(ctx, admin, "x", core.RoleTeacher); err != nil {
		t.Fatalf("admin Assign(TEACHER) unexpected error: %v", err)
	}

	got, _ := svc.List(ctx, "x")
	teacher := &core.Principal{Subject: "x", Roles: core.NewRoleSet(got...)}
	if !teacher.HasAnyRole(core.RoleTeacher) {
		t.Fatalf("x roles = %v, want TEACHER", got)
	}

	err := svc.Assign(ctx, teacher, "y", core.RoleAdmin)
	if !errors.Is(err, core.ErrInsufficientPermissions) {
		t.Fatalf("teacher Assign(ADMIN) error = %v, want ErrInsufficientPermissions", err)
	}
	if got := core.StatusCode(err); got != 403 {
		t.Errorf("StatusCode() = %d, want 403", got)
	}
	if roles, _ := svc.List(ctx, "y"); len(roles) != 0 {
		t.Errorf("y roles = %v, want none", roles)
	}

	if err := svc.Assign(ctx, teacher, "y", "assistant"); err != nil {
		t.Errorf("teacher Assign(ASSISTANT) unexpected error: %v", err)
	}
	student := &core.Principal{Subject: "s", Roles: core.NewRoleSet(core.RoleStudent)}
	if err := svc.Revoke(ctx, student, "y", core.RoleAssistant); !errors.Is(err, core.ErrInsufficientPermissions) {
		t.Errorf("student Revoke() error = %v, want ErrInsufficientPermissions", err)
	}
	if err := svc.Assign(ctx, nil, "y", "not a role"); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("Assign(invalid role) error = %v, want ErrBadRequest", err)
	}
}

func TestAccessService_Explain(t *testing.T) {
	f := newFixture(t, users, true)
	ctx := context.Background()
	rules, err := authz.CompileRules([]authz.Rule{
		{Name: "grades-write", Method: "POST", Path: "/api/v1/grades", Roles: []string{core.RoleTeacher}},
	})
	if err != nil {
		t.Fatalf("CompileRules() unexpected error: %v", err)
	}
	svc := NewAccessService(f.verifier, rules)
	pair, _ := f.auth.Login(ctx, LoginRequest{Username: "alice", Password: "pw-alice"})

	tests := []struct {
		name        string
		req         ExplainRequest
		wantAllowed bool
		wantRule    string
		wantTokErr  bool
	}{
		{name: "Denied By Rule", req: ExplainRequest{Token: pair.AccessToken, Method: "post", Path: "/api/v1/grades"}, wantRule: "grades-write"},
		{name: "No Rule", req: ExplainRequest{Token: pair.AccessToken, Path: "/api/v1/me"}, wantAllowed: true},
		{name: "Bad Token", req: ExplainRequest{Token: "garbage", Path: "/api/v1/me"}, wantTokErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Explain(ctx, tt.req)
			if got.Allowed != tt.wantAllowed || got.MatchedRule != tt.wantRule || (got.TokenError != "") != tt.wantTokErr {
				t.Errorf("Explain() = %+v", got)
			}
		})
	}
}
