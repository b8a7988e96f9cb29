package client

import (
	"context"
	"net/http"

	"github.com/classhub/trustgate/internal/api"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/service"
)

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*service.TokenPair, string, error) {
	var pair service.TokenPair
	correlation, err := c.post(ctx, c.url().setPath(api.LoginRoute).build(), api.LoginPayload{
		Username: username,
		Password: password,
	}, &pair)
	if err != nil {
		return nil, correlation, err
	}
	return &pair, correlation, nil
}

// Refresh rotates a refresh token. The old refresh token must not be used again.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, string, error) {
	var pair service.TokenPair
	correlation, err := c.post(ctx, c.url().setPath(api.RefreshRoute).build(), api.RefreshPayload{
		RefreshToken: refreshToken,
	}, &pair)
	if err != nil {
		return nil, correlation, err
	}
	return &pair, correlation, nil
}

// Logout ends the session of the client's access token.
// refreshToken is optional; when given, its family is revoked as well.
func (c *Client) Logout(ctx context.Context, refreshToken string) (string, error) {
	var payload any
	if refreshToken != "" {
		payload = api.RefreshPayload{RefreshToken: refreshToken}
	}
	return c.post(ctx, c.url().setPath(api.LogoutRoute).build(), payload, nil)
}

// Validate reports whether the client's access token is currently valid.
func (c *Client) Validate(ctx context.Context) (bool, string, error) {
	var valid bool
	correlation, err := c.get(ctx, c.url().setPath(api.ValidateRoute).build(), &valid)
	return valid, correlation, err
}

// Me returns the principal behind the client's access token.
func (c *Client) Me(ctx context.Context) (*core.Principal, string, error) {
	var principal core.Principal
	correlation, err := c.get(ctx, c.url().setPath(api.MeRoute).build(), &principal)
	if err != nil {
		return nil, correlation, err
	}
	return &principal, correlation, nil
}

// ValidateToken checks an arbitrary token instead of the client's own.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url().setPath(api.ValidateRoute).build(), nil)
	if err != nil {
		return false, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	var valid bool
	correlation, err := c.do(req, &valid)
	return valid, correlation, err
}
