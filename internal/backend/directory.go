package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kalambet/ensiklopedia/internal/directory"
)

// GetDirectory returns the stored directory, or nil when the backend has
// none. The backend may wrap it as {"directory_data": ...} or send it bare.
func (c *Client) GetDirectory(ctx context.Context) (*directory.Data, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/encyclopedia/directory", nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching directory: %w", err)
	}
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	var wrapped struct {
		DirectoryData *directory.Data `json:"directory_data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.DirectoryData != nil {
		return wrapped.DirectoryData, nil
	}
	var d directory.Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decoding directory: %w", err)
	}
	if d.IsEmpty() {
		return nil, nil
	}
	return &d, nil
}

// SaveDirectory replaces the stored directory. Admin only.
func (c *Client) SaveDirectory(ctx context.Context, d directory.Data) error {
	body := struct {
		DirectoryData directory.Data `json:"directory_data"`
	}{d}
	if err := c.do(ctx, http.MethodPut, "/admin/settings/directory", body, nil); err != nil {
		return fmt.Errorf("saving directory: %w", err)
	}
	return nil
}
