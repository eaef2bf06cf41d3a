package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// Login answers a failed login with a *StatusError whose Reason is one of
// unknown_user, banned or wrong_password.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthPayload, error) {
	var out AuthPayload
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"username": username, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthPayload, error) {
	var out AuthPayload
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out Tokens
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refresh_token": refreshToken},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, token, refreshToken string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/logout",
		token:  token,
		body:   map[string]string{"refresh_token": refreshToken},
	}, nil)
}

func (c *Client) Me(ctx context.Context, token string) (*Account, error) {
	var out Account
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me", token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAccounts(ctx context.Context, token string) ([]Account, error) {
	var out []Account
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/users", token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context, token, id string) (*Account, error) {
	var out Account
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/users/" + url.PathEscape(id), token: token}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetAccountStatus bans the account when banned is true and lifts the ban otherwise.
func (c *Client) SetAccountStatus(ctx context.Context, token, id string, banned bool) (*Account, error) {
	var out Account
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/users/" + url.PathEscape(id) + banPath(banned), token: token}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAccount(ctx context.Context, token, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/auth/users/" + url.PathEscape(id), token: token}, nil)
}

func banPath(banned bool) string {
	if banned {
		return "/ban"
	}
	return "/unban"
}

// Reason extracts the login failure reason from err, if any.
func Reason(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}
