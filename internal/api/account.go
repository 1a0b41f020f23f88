package api

import (
	"context"
	"net/http"
)

// AuthResponse is returned by the login, register and authenticate endpoints.
type AuthResponse struct {
	User    User    `json:"user"`
	Session Session `json:"session"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	User User `json:"user"`
}

// Login starts a new session.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/login",
		body:   loginRequest{Username: username, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and starts a session for it.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/register",
		body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Authenticate validates the session and returns it refreshed. The token and
// CSRF value may rotate, so callers must persist the returned session.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{
		op:     "authenticate",
		method: http.MethodPost,
		path:   "/authenticate",
		creds:  &creds,
		csrf:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session server-side.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	return c.do(ctx, request{
		op:     "logout",
		method: http.MethodDelete,
		path:   "/logout",
		creds:  &creds,
		csrf:   true,
	}, nil)
}

// UpdateUser applies a partial update to the session user's account.
func (c *Client) UpdateUser(ctx context.Context, creds Credentials, patch UserPatch) (*User, error) {
	var out userResponse
	err := c.do(ctx, request{
		op:     "update user",
		method: http.MethodPut,
		path:   "/users",
		creds:  &creds,
		csrf:   true,
		body:   patch,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// DeleteUser deletes the session user's account. The session ends with it.
func (c *Client) DeleteUser(ctx context.Context, creds Credentials) error {
	return c.do(ctx, request{
		op:     "delete user",
		method: http.MethodDelete,
		path:   "/users",
		creds:  &creds,
		csrf:   true,
	}, nil)
}
