package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Role is a user's permission level.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// User is an account as returned by the backend.
type User struct {
	ID        ID        `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// IsAdmin reports whether u may use the admin endpoints.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

type authResponse struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

// Register creates an account and stores the returned session token.
func (c *Client) Register(ctx context.Context, username, email, password, confirmation string) (*User, error) {
	body := map[string]string{
		"username":              username,
		"email":                 email,
		"password":              password,
		"password_confirmation": confirmation,
	}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/register", body, &resp); err != nil {
		return nil, fmt.Errorf("registering: %w", err)
	}
	return c.startSession(resp)
}

// Login authenticates and stores the returned session token.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	return c.startSession(resp)
}

func (c *Client) startSession(resp authResponse) (*User, error) {
	if resp.Token == "" {
		return nil, errors.New("backend returned no session token")
	}
	if err := c.tokens.SetToken(resp.Token); err != nil {
		return nil, err
	}
	u := resp.User.user()
	return &u, nil
}

// Logout ends the session. The local token is removed even when the
// backend call fails.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/logout", struct{}{}, nil); err != nil {
		slog.Warn("backend: logout call failed, clearing session locally", "error", err)
	}
	if err := c.tokens.DeleteToken(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// CurrentUser returns the logged-in user, or nil when there is no session.
// Any failure to confirm the session clears the token.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if !c.HasSession() {
		return nil, nil
	}
	var wu wireUser
	if err := c.do(ctx, http.MethodGet, "/user", nil, &wu); err != nil {
		slog.Info("backend: session rejected, clearing token", "error", err)
		if !errors.Is(err, ErrUnauthorized) {
			if derr := c.tokens.DeleteToken(); derr != nil {
				return nil, fmt.Errorf("clearing session: %w", derr)
			}
		}
		return nil, nil
	}
	u := wu.user()
	return &u, nil
}
