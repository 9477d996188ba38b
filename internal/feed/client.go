// Package feed implements the HTTP client for the upstream live-score feed.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rgupta1997/fanverse-live/internal/metrics"
	"github.com/rgupta1997/fanverse-live/internal/platform/retry"
)

const maxResponseBytes = 4 << 20 // feed payloads are small; cap defensively

// Client fetches match and commentary payloads from the configured base
// endpoint. Concurrent fetches for the same key (a scheduled tick racing a
// manual force-poll) are collapsed into one upstream request.
type Client struct {
	baseURL string
	http    *http.Client
	group   singleflight.Group
	policy  retry.Policy
}

type fetchResult struct {
	data map[string]any
	url  string
}

// statusError reports a non-2xx upstream response.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("feed returned status %d for %s", e.code, e.url)
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   500 * time.Millisecond,
			RateLimitBackoff: 2 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Feed fetch retrying", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

// FetchMatch retrieves the main snapshot payload for a match. It returns the
// parsed body and the URL requested.
func (c *Client) FetchMatch(ctx context.Context, matchID string) (map[string]any, string, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, matchID)
	return c.fetch(ctx, "main:"+matchID, url)
}

// FetchCommentary retrieves the ball-by-ball payload for one inning of a match.
func (c *Client) FetchCommentary(ctx context.Context, matchID string, inning int) (map[string]any, string, error) {
	url := fmt.Sprintf("%s/%s/innings/%d/commentary", c.baseURL, matchID, inning)
	return c.fetch(ctx, fmt.Sprintf("commentary:%s:%d", matchID, inning), url)
}

func (c *Client) fetch(ctx context.Context, key, url string) (map[string]any, string, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := retry.Do(ctx, c.policy, classify, func() (map[string]any, error) {
			return c.doRequest(ctx, url)
		})
		if err != nil {
			return nil, err
		}
		return fetchResult{data: data, url: url}, nil
	})
	if err != nil {
		return nil, url, err
	}

	res := v.(fetchResult)
	return res.data, res.url, nil
}

func (c *Client) doRequest(ctx context.Context, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.FeedRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.FeedRequestsTotal.WithLabelValues("http_error").Inc()
		return nil, &statusError{code: resp.StatusCode, url: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.FeedRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("failed to read feed response: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.FeedRequestsTotal.WithLabelValues("parse_error").Inc()
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}

	metrics.FeedRequestsTotal.WithLabelValues("ok").Inc()
	return data, nil
}

// classify maps request errors to retry actions: 429 waits out the rate
// limit, other 4xx are permanent, everything else is transient.
func classify(err error) retry.Action {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusTooManyRequests:
			return retry.After
		case se.code >= 400 && se.code < 500:
			return retry.Stop
		default:
			return retry.Retry
		}
	}
	return retry.Retry
}
