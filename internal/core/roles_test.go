package core

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ADMIN", want: "ROLE_ADMIN"},
		{in: " teacher ", want: "ROLE_TEACHER"},
		{in: "ROLE_STUDENT", want: "ROLE_STUDENT"},
		{in: "role_assistant", want: "ROLE_ASSISTANT"},
		{in: "", wantErr: true},
		{in: "ROLE_", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "1ADMIN", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeRole(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeRole(%q) expected error, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeRole(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeRole(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoleSet_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "List", input: `["STUDENT","TEACHER"]`, want: []string{"ROLE_STUDENT", "ROLE_TEACHER"}},
		{name: "CSV", input: `"STUDENT,TEACHER"`, want: []string{"ROLE_STUDENT", "ROLE_TEACHER"}},
		{name: "CSV With Spaces And Prefix", input: `" ROLE_STUDENT , teacher,"`, want: []string{"ROLE_STUDENT", "ROLE_TEACHER"}},
		{name: "Empty List", input: `[]`, want: []string{}},
		{name: "Empty CSV", input: `""`, want: []string{}},
		{name: "Null", input: `null`, wantErr: true},
		{name: "Number", input: `42`, wantErr: true},
		{name: "Object", input: `{"role":"ADMIN"}`, wantErr: true},
		{name: "Mixed List", input: `["ADMIN", 1]`, wantErr: true},
		{name: "Invalid Name", input: `["AD MIN"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RoleSet
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatalf("decoded set is nil, want non-nil")
			}
			if diff := cmp.Diff(tt.want, got.Canonical()); diff != "" {
				t.Errorf("roles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoleSet_EncodingRoundTrip(t *testing.T) {
	sets := []RoleSet{
		NewRoleSet(RoleStudent),
		NewRoleSet(RoleAdmin, RoleTeacher, RoleAssistant),
		NewRoleSet(),
	}

	for _, set := range sets {
		t.Run(set.String(), func(t *testing.T) {
			listJSON, err := json.Marshal(set)
			if err != nil {
				t.Fatalf("marshal list: %v", err)
			}
			csvJSON, err := json.Marshal(set.CSV())
			if err != nil {
				t.Fatalf("marshal csv: %v", err)
			}

			var fromList, fromCSV RoleSet
			if err := json.Unmarshal(listJSON, &fromList); err != nil {
				t.Fatalf("unmarshal list: %v", err)
			}
			if err := json.Unmarshal(csvJSON, &fromCSV); err != nil {
				t.Fatalf("unmarshal csv: %v", err)
			}

			if !fromList.Equal(fromCSV) {
				t.Errorf("list decoded to %v, csv decoded to %v", fromList, fromCSV)
			}
			if !fromList.Equal(set) {
				t.Errorf("round trip = %v, want %v", fromList, set)
			}
		})
	}
}

func TestRoleSet_Has(t *testing.T) {
	set := NewRoleSet("teacher")
	if !set.Has(RoleTeacher) || !set.Has("ROLE_TEACHER") {
		t.Errorf("expected %v to contain TEACHER", set)
	}
	if set.Has(RoleAdmin) {
		t.Errorf("did not expect %v to contain ADMIN", set)
	}
	if !set.Intersects(NewRoleSet(RoleAdmin, RoleTeacher)) {
		t.Errorf("expected %v to intersect {ADMIN, TEACHER}", set)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrMissingCredential, 401},
		{ErrExpiredToken, 401},
		{ErrRefreshReused, 401},
		{ErrInsufficientRole, 403},
		{ErrInsufficientPermissions, 403},
		{ErrUpstreamUnavailable, 503},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
	if PublicMessage(ErrAccountDeleted) != PublicMessage(ErrInvalidCredentials) {
		t.Errorf("deleted-account message must not differ from invalid-credentials message")
	}
}
