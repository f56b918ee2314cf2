// Package imagegen fetches illustrative images from a prompt-addressed
// image service.
package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://image.pollinations.ai"
	DefaultWidth   = 1024
	DefaultHeight  = 576
	DefaultModel   = "turbo"

	defaultTimeout = 90 * time.Second
	maxImageBytes  = 20 << 20
)

// Options configures the generated image.
type Options struct {
	Width  int
	Height int
	Model  string
}

// Client requests images by prompt.
type Client struct {
	baseURL    string
	opts       Options
	httpClient *http.Client
}

// New creates a Client. Zero options fall back to the defaults.
func New(baseURL string, opts Options) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		opts:       opts,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Generate fetches the image for prompt and returns it base64-encoded.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	q := url.Values{}
	q.Set("width", strconv.Itoa(c.opts.Width))
	q.Set("height", strconv.Itoa(c.opts.Height))
	q.Set("model", c.opts.Model)
	q.Set("nologo", "true")
	u := c.baseURL + "/prompt/" + url.PathEscape(prompt) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("empty image body")
	}
	return base64.StdEncoding.EncodeToString(body), nil
}
