package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/classhub/trustgate/internal/core"
)

func entries(n int) []core.AuditEntry {
	out := make([]core.AuditEntry, n)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = core.AuditEntry{
			ID:       string(rune('a' + i)),
			Time:     base.Add(time.Duration(i) * time.Minute),
			Action:   "auth.login",
			Username: "alice",
			Granted:  i%2 == 0,
		}
	}
	return out
}

func TestAuditors(t *testing.T) {
	auditors := map[string]func(t *testing.T) interface {
		core.Auditor
		core.AuditReader
	}{
		"Memory": func(t *testing.T) interface {
			core.Auditor
			core.AuditReader
		} {
			return NewInMemoryAuditor(0)
		},
		"File": func(t *testing.T) interface {
			core.Auditor
			core.AuditReader
		} {
			a, err := NewFileAuditor(filepath.Join(t.TempDir(), "audit.log"))
			if err != nil {
				t.Fatalf("NewFileAuditor() unexpected error: %v", err)
			}
			t.Cleanup(func() { _ = a.Close() })
			return a
		},
	}

	for name, factory := range auditors {
		t.Run(name, func(t *testing.T) {
			a := factory(t)
			all := entries(5)
			for _, e := range all {
				if err := a.Log(e); err != nil {
					t.Fatalf("Log() unexpected error: %v", err)
				}
			}

			recent, err := a.GetRecent(2)
			if err != nil {
				t.Fatalf("GetRecent() unexpected error: %v", err)
			}
			if diff := cmp.Diff(all[3:], recent); diff != "" {
				t.Errorf("GetRecent mismatch (-want +got):\n%s", diff)
			}

			denied, err := a.Find(func(e core.AuditEntry) bool { return !e.Granted }, 10)
			if err != nil {
				t.Fatalf("Find() unexpected error: %v", err)
			}
			if diff := cmp.Diff([]core.AuditEntry{all[1], all[3]}, denied); diff != "" {
				t.Errorf("Find mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInMemoryAuditor_Capacity(t *testing.T) {
	a := NewInMemoryAuditor(3)
	all := entries(5)
	for _, e := range all {
		_ = a.Log(e)
	}
	got, _ := a.GetRecent(0)
	if diff := cmp.Diff(all[2:], got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("") != "" {
		t.Errorf("Fingerprint(\"\") should be empty")
	}
	a, b := Fingerprint("token-a"), Fingerprint("token-b")
	if a == b {
		t.Errorf("different tokens share fingerprint %s", a)
	}
	if a != Fingerprint("token-a") {
		t.Errorf("Fingerprint is not deterministic")
	}
}

func TestNew(t *testing.T) {
	if a, err := New(false, TypeFile, ""); err != nil {
		t.Errorf("New(disabled) unexpected error: %v", err)
	} else if _, ok := a.(*NoopAuditor); !ok {
		t.Errorf("New(disabled) = %T, want *NoopAuditor", a)
	}
	if _, err := New(true, TypeFile, ""); err == nil {
		t.Errorf("New(file without path) expected error")
	}
	if _, err := New(true, "kafka", ""); err == nil {
		t.Errorf("New(unknown) expected error")
	}
}
