package portalapi

import (
	"context"
	"net/http"
	"strings"
)

// Register creates an account and returns the issued tokens.
// The request is validated locally before anything is sent.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "users/register/", req, &resp, false); err != nil {
		return nil, err
	}
	if resp.User.Username == "" {
		resp.User.Username = req.Username
	}
	return &resp, nil
}

// Login authenticates with username and password
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "users/login/", req, &resp, false); err != nil {
		return nil, err
	}
	if resp.Tokens.Access == "" {
		return nil, ErrMissingToken
	}
	if resp.User.Username == "" {
		resp.User.Username = req.Username
	}
	return &resp, nil
}

// Me returns the user the current token belongs to
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "users/me/", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}
