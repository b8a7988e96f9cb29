package client

import (
	"context"

	"github.com/classhub/trustgate/internal/api"
)

// Info asks the server which issuer and signing key ID it runs with.
func (c *Client) Info(ctx context.Context) (*api.About, string, error) {
	var about api.About
	correlation, err := c.get(ctx, c.url().setPath(api.AboutRoute).build(), &about)
	return &about, correlation, err
}
