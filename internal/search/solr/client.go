// Package solr posts documents to a Solr core and manages its lifecycle:
// reload, commit, optimize, rollback and truncate.
package solr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config locates the core.
type Config struct {
	BaseURL string
	Core    string
	Timeout time.Duration
}

// StatusError is a non-2xx response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("solr %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Client talks to one core.
type Client struct {
	baseURL string
	core    string
	http    *http.Client
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("solr base url is required")
	}
	if strings.TrimSpace(cfg.Core) == "" {
		return nil, fmt.Errorf("solr core is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		core:    cfg.Core,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Reload reloads the core so schema changes take effect.
func (c *Client) Reload(ctx context.Context) error {
	q := url.Values{"action": {"RELOAD"}, "core": {c.core}}
	return c.do(ctx, "reload", http.MethodGet, c.baseURL+"/solr/admin/cores?"+q.Encode(), nil)
}

// Post appends a JSON array of documents.
func (c *Client) Post(ctx context.Context, body []byte) error {
	return c.do(ctx, "post", http.MethodPost, c.updateURL(nil), body)
}

// Commit makes posted documents visible, optionally merging segments.
func (c *Client) Commit(ctx context.Context, optimize bool) error {
	q := url.Values{"commit": {"true"}}
	if optimize {
		q.Set("optimize", "true")
	}
	return c.do(ctx, "commit", http.MethodGet, c.updateURL(q), nil)
}

// Rollback discards uncommitted changes.
func (c *Client) Rollback(ctx context.Context) error {
	return c.do(ctx, "rollback", http.MethodPost, c.updateURL(nil), []byte(`{"rollback":{}}`))
}

// Truncate deletes every document. The deletion is visible after Commit.
func (c *Client) Truncate(ctx context.Context) error {
	return c.do(ctx, "truncate", http.MethodPost, c.updateURL(nil), []byte(`{"delete":{"query":"*:*"}}`))
}

func (c *Client) updateURL(q url.Values) string {
	u := fmt.Sprintf("%s/solr/%s/update", c.baseURL, url.PathEscape(c.core))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, op, method, rawURL string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("solr %s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("solr %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
