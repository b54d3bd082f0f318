package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://api.wikiwiki.jp"
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
)

// Config holds the wiki API endpoint settings.
type Config struct {
	WikiID  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the wiki content API. It authenticates lazily, caches the
// bearer token and refreshes it once when the server rejects it. Safe for
// concurrent use by fetch workers.
type Client struct {
	cfg       Config
	apiKeyID  string
	apiSecret string
	http      *http.Client
	userAgent string

	mu    sync.Mutex
	token string
}

func NewClient(cfg Config, apiKeyID, apiSecret, userAgent string) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		cfg:       cfg,
		apiKeyID:  apiKeyID,
		apiSecret: apiSecret,
		userAgent: userAgent,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GetPage fetches one page's title, version timestamp and raw body.
func (c *Client) GetPage(ctx context.Context, pageName string) (PageData, error) {
	endpoint := c.url("/" + c.cfg.WikiID + "/page/" + url.PathEscape(pageName))

	var page PageData
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return PageData{}, fmt.Errorf("failed to get page %q: %w", pageName, err)
	}
	return page, nil
}

// ListPages lists the wiki's pages.
func (c *Client) ListPages(ctx context.Context) (PageList, error) {
	endpoint := c.url("/" + c.cfg.WikiID + "/pages")

	var list PageList
	if err := c.getJSON(ctx, endpoint, &list); err != nil {
		return PageList{}, fmt.Errorf("failed to list pages: %w", err)
	}
	return list, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return err
	}

	body, status, err := c.doRequest(ctx, endpoint, token)
	if err != nil {
		return err
	}

	// Expired or revoked token: re-authenticate once and retry.
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		token, err = c.refreshToken(ctx)
		if err != nil {
			return err
		}
		body, status, err = c.doRequest(ctx, endpoint, token)
		if err != nil {
			return err
		}
	}

	if status >= 400 {
		return fmt.Errorf("HTTP %d: %s", status, truncateBody(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	return nil
}

// doRequest performs a GET with bounded retries on transient statuses.
func (c *Client) doRequest(ctx context.Context, endpoint, token string) ([]byte, int, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(retryBaseDelay * time.Duration(attempt-1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncateBody(body))
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	return c.authenticateLocked(ctx)
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"api_key_id": c.apiKeyID,
		"secret":     c.apiSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth payload: %w", err)
	}

	endpoint := c.url("/" + c.cfg.WikiID + "/auth")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("auth failed: HTTP %d: %s", resp.StatusCode, truncateBody(body))
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", fmt.Errorf("invalid auth response: %w", err)
	}
	if auth.Token == "" || (auth.Status != "" && auth.Status != "ok") {
		return "", fmt.Errorf("auth rejected: status=%q", auth.Status)
	}

	c.token = auth.Token
	return c.token, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func truncateBody(body []byte) string {
	const limit = 300
	s := string(body)
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
