package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "auth.login", "auth.logout")
	Action string `json:"action"`

	// Username as supplied by the caller (may be unknown for logout/refresh)
	Username string `json:"username,omitempty"`

	// Subject is the verified subject, if one was established
	Subject string `json:"subject,omitempty"`

	// SourceIP and Device describe where the request came from
	SourceIP string `json:"source_ip,omitempty"`
	Device   string `json:"device,omitempty"`

	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`

	// TokenFingerprint identifies the token involved without storing it
	TokenFingerprint string `json:"token_fingerprint,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}

// AuditReader is implemented by auditors that can serve entries back.
type AuditReader interface {
	GetRecent(limit int) ([]AuditEntry, error)
	Find(filter func(entry AuditEntry) bool, limit int) ([]AuditEntry, error)
}
