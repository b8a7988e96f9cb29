package paths

import "testing"

func TestUnder(t *testing.T) {
	tests := []struct {
		path, prefix string
		want         bool
	}{
		{"/api/courses", "/api/courses", true},
		{"/api/courses/42", "/api/courses", true},
		{"/api/coursesX", "/api/courses", false},
		{"/api/v1/administrator", "/api/v1/admin", false},
		{"/api/v1/admin/audits", "/api/v1/admin/", true},
		{"/api/v1/admin", "/api/v1/admin/", true},
		{"/anything", "/", true},
		{"", "/", false},
	}
	for _, tt := range tests {
		t.Run(tt.path+" under "+tt.prefix, func(t *testing.T) {
			if got := Under(tt.path, tt.prefix); got != tt.want {
				t.Errorf("Under(%q, %q) = %v, want %v", tt.path, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestTrim(t *testing.T) {
	tests := []struct {
		path, prefix, want string
	}{
		{"/svc/grades/42", "/svc/grades", "/42"},
		{"/svc/grades", "/svc/grades", "/"},
		{"/svc/grades/42", "/svc/grades/", "/42"},
	}
	for _, tt := range tests {
		if got := Trim(tt.path, tt.prefix); got != tt.want {
			t.Errorf("Trim(%q, %q) = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}
