package client

import (
	"context"

	"github.com/classhub/trustgate/internal/api"
)

func (c *Client) ListRoles(ctx context.Context, userID string) ([]string, string, error) {
	var resp api.UserRoles
	correlation, err := c.get(ctx, c.url().
		setPath(api.UserRolesRoute).
		setPathParam("id", userID).
		build(), &resp)
	return resp.Roles, correlation, err
}

func (c *Client) AssignRole(ctx context.Context, userID, role string) (string, error) {
	return c.post(ctx, c.url().
		setPath(api.UserRolesRoute).
		setPathParam("id", userID).
		build(), api.AssignRolePayload{Role: role}, nil)
}

func (c *Client) RevokeRole(ctx context.Context, userID, role string) (string, error) {
	return c.delete(ctx, c.url().
		setPath(api.UserRoleRoute).
		setPathParam("id", userID).
		setPathParam("role", role).
		build())
}
