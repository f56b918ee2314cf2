package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kalambet/ensiklopedia/internal/history"
)

type wireHistoryItem struct {
	Query     string `json:"query"`
	Timestamp int64  `json:"timestamp"`
	UserID    ID     `json:"user_id"`
	UserIDAlt ID     `json:"userId"`
	User      *struct {
		Username string `json:"username"`
	} `json:"user"`
}

func (w wireHistoryItem) listItem() history.ListItem {
	uid := w.UserID
	if uid == "" {
		uid = w.UserIDAlt
	}
	return history.ListItem{Query: w.Query, Timestamp: w.Timestamp, UserID: string(uid)}
}

// ListHistory returns the current user's history metadata.
func (c *Client) ListHistory(ctx context.Context) ([]history.ListItem, error) {
	var wire []wireHistoryItem
	if err := c.do(ctx, http.MethodGet, "/encyclopedia/history", nil, &wire); err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	out := make([]history.ListItem, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.listItem())
	}
	return out, nil
}

// AddHistory records that query was asked at timestamp (unix ms).
func (c *Client) AddHistory(ctx context.Context, query string, timestamp int64) error {
	body := struct {
		Query     string `json:"query"`
		Timestamp int64  `json:"timestamp"`
	}{query, timestamp}
	if err := c.do(ctx, http.MethodPost, "/encyclopedia/history", body, nil); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// DeleteHistory removes one of the current user's entries.
func (c *Client) DeleteHistory(ctx context.Context, timestamp int64) error {
	path := "/encyclopedia/history/" + strconv.FormatInt(timestamp, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("deleting history item: %w", err)
	}
	return nil
}

// ClearHistory removes all of the current user's entries.
func (c *Client) ClearHistory(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/encyclopedia/history", nil, nil); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// AdminHistoryItem is a history entry across all users.
type AdminHistoryItem struct {
	history.ListItem
	Username string `json:"username"`
}

// HistoryFilter narrows the admin history listing. Zero values are omitted.
type HistoryFilter struct {
	Query  string
	UserID string
	Limit  int
}

func (f HistoryFilter) encode() string {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.UserID != "" {
		v.Set("user_id", f.UserID)
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v.Encode()
}

// AdminHistory lists history across all users. Admin only.
func (c *Client) AdminHistory(ctx context.Context, f HistoryFilter) ([]AdminHistoryItem, error) {
	var wire []wireHistoryItem
	if err := c.do(ctx, http.MethodGet, "/admin/history?"+f.encode(), nil, &wire); err != nil {
		return nil, fmt.Errorf("listing all history: %w", err)
	}
	out := make([]AdminHistoryItem, 0, len(wire))
	for _, w := range wire {
		name := "Unknown"
		if w.User != nil && w.User.Username != "" {
			name = w.User.Username
		}
		out = append(out, AdminHistoryItem{ListItem: w.listItem(), Username: name})
	}
	return out, nil
}

// AdminDeleteHistory removes any user's entry. Admin only.
func (c *Client) AdminDeleteHistory(ctx context.Context, timestamp int64) error {
	path := "/admin/history/" + strconv.FormatInt(timestamp, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("deleting history item: %w", err)
	}
	return nil
}
