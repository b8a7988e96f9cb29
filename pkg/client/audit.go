package client

import (
	"context"

	"github.com/classhub/trustgate/internal/api"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/service"
)

type ListAuditsOpts struct {
	Limit uint

	CorrelationID string
	Subject       string
	Username      string
	Action        string
	Fingerprint   string
}

// ListAudits retrieves the latest audit entries from the server. Requires ADMIN.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	for key, value := range map[string]string{
		"correlation_id": opts.CorrelationID,
		"subject":        opts.Subject,
		"username":       opts.Username,
		"action":         opts.Action,
		"fingerprint":    opts.Fingerprint,
	} {
		if value != "" {
			ub = ub.addQueryParam(key, value)
		}
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}

// Explain asks the server how its route rules decide a request. Requires ADMIN.
func (c *Client) Explain(ctx context.Context, req api.ExplainPayload) (*service.Explanation, string, error) {
	var explanation service.Explanation
	correlation, err := c.post(ctx, c.url().setPath(api.ExplainRoute).build(), req, &explanation)
	if err != nil {
		return nil, correlation, err
	}
	return &explanation, correlation, nil
}
