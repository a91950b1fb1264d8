// Package yougile is a client for the YouGile REST API. The mirror
// pulls single entities while resolving missing dependencies and full
// listings during imports; the only writes are to the company's webhook
// subscriptions.
package yougile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultBaseURL    = "https://yougile.com"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRateLimit  = 25

	// The API enforces a hard cooldown after 429 that is much longer
	// than the request spacing, 30s observed in practice.
	rateLimitCooldown = 30 * time.Second
)

type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	RatePerMinute int
}

// Client talks to the API with request spacing and retry built in. Safe
// for concurrent use; the throttle serializes request slots.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	spacing    time.Duration
	logger     *slog.Logger

	mu          sync.Mutex
	nextRequest time.Time
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = defaultRateLimit
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		spacing:    time.Minute / time.Duration(cfg.RatePerMinute),
		logger:     logger,
	}
}

// throttle reserves the next request slot, sleeping when the previous
// slot is too recent. Reserving before sleeping keeps concurrent
// callers spaced instead of releasing them in a burst.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if c.nextRequest.After(now) {
		wait = c.nextRequest.Sub(now)
		c.nextRequest = c.nextRequest.Add(c.spacing)
	} else {
		c.nextRequest = now.Add(c.spacing)
	}
	c.mu.Unlock()

	if wait > 0 {
		return sleepCtx(ctx, wait)
	}
	return nil
}

// request performs one HTTP call with retries. Transport failures back
// off exponentially, 429 sleeps the full cooldown; any other status is
// returned immediately as a typed error. Writes share the same retry
// policy, the webhook endpoints tolerate a repeat.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, payload any) (json.RawMessage, error) {
	endpoint := c.baseURL + "/api-v2" + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encoding request: %w", method, path, err)
		}
	}

	// Stateful, so a fresh instance per request.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxElapsedTime = 0

	for attempt := 0; ; attempt++ {
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}

		var bodyReader io.Reader
		if reqBody != nil {
			bodyReader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("%s %s: %w", method, path, err)
			}
			wait := bo.NextBackOff()
			c.logger.Warn("request failed, retrying",
				"path", path, "attempt", attempt+1, "wait", wait, "error", err)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
			}
			if err := sleepCtx(ctx, bo.NextBackOff()); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			cooldown := rateLimitCooldown
			if ra := retryAfter(resp.Header); ra > cooldown {
				cooldown = ra
			}
			if attempt >= c.maxRetries {
				return nil, &RateLimitError{RetryAfter: cooldown}
			}
			c.logger.Warn("rate limited, cooling down",
				"path", path, "attempt", attempt+1, "wait", cooldown)
			if err := sleepCtx(ctx, cooldown); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}
		return nil, statusError(resp.StatusCode, errorMessage(body, resp.StatusCode))
	}
}

func (c *Client) getObject(ctx context.Context, path string) (map[string]any, error) {
	return c.object(ctx, http.MethodGet, path, nil)
}

func (c *Client) postObject(ctx context.Context, path string, payload any) (map[string]any, error) {
	return c.object(ctx, http.MethodPost, path, payload)
}

func (c *Client) putObject(ctx context.Context, path string, payload any) (map[string]any, error) {
	return c.object(ctx, http.MethodPut, path, payload)
}

func (c *Client) object(ctx context.Context, method, path string, payload any) (map[string]any, error) {
	raw, err := c.request(ctx, method, path, nil, payload)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return obj, nil
}

func (c *Client) getList(ctx context.Context, path string, params url.Values) ([]map[string]any, error) {
	raw, err := c.request(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, err
	}
	list, err := decodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return list, nil
}

// decodeList accepts both answer shapes the API uses for collections, a
// bare array and a {"paging": ..., "content": [...]} wrapper.
func decodeList(raw []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []map[string]any
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var wrapper struct {
		Content []map[string]any `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Content, nil
}

func statusError(status int, msg string) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuth, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	default:
		return &APIError{StatusCode: status, Message: msg}
	}
}

func errorMessage(body []byte, status int) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
