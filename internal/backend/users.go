package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// UserWithStats is a user row in the admin listing.
type UserWithStats struct {
	User
	QueryCount int `json:"queryCount"`
}

// wireUser is the backend's user shape. Older backends send "name"
// instead of "username".
type wireUser struct {
	ID                ID     `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              Role   `json:"role"`
	CreatedAt         string `json:"created_at"`
	HistoryItemsCount int    `json:"history_items_count"`
}

func (w wireUser) user() User {
	u := User{ID: w.ID, Username: w.Username, Email: w.Email, Role: w.Role}
	if u.Username == "" {
		u.Username = w.Name
	}
	if w.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, w.CreatedAt); err == nil {
			u.CreatedAt = t
		}
	}
	return u
}

// ListUsers returns every account with its query count. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]UserWithStats, error) {
	var wire []wireUser
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &wire); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	out := make([]UserWithStats, 0, len(wire))
	for _, w := range wire {
		out = append(out, UserWithStats{User: w.user(), QueryCount: w.HistoryItemsCount})
	}
	return out, nil
}

// NewUser describes an account to create.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// CreateUser adds an account. Admin only.
func (c *Client) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	var w wireUser
	if err := c.do(ctx, http.MethodPost, "/admin/users", nu, &w); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	u := w.user()
	return &u, nil
}

// UserUpdate holds the fields to change; empty fields are left alone.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// UpdateUser changes an account. Admin only.
func (c *Client) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	var w wireUser
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), upd, &w); err != nil {
		return nil, fmt.Errorf("updating user %s: %w", id, err)
	}
	u := w.user()
	return &u, nil
}

// DeleteUser removes an account. Admin only.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	return nil
}
