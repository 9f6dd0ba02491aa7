// Package fetch provides the retrying HTTP fetcher used by crawl workers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxBodyBytes = 10 << 20

// retryableStatus lists the responses worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Result is a successfully fetched page.
type Result struct {
	StatusCode int
	Body       []byte
}

// Client fetches URLs with bounded retries and exponential backoff.
type Client struct {
	http       *http.Client
	userAgent  string
	maxRetries int
	logger     *zap.Logger
	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration)
}

// NewClient builds a Client with the given per-request timeout.
func NewClient(timeout time.Duration, userAgent string, maxRetries int, logger *zap.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      sleepWithContext,
	}
}

// Get fetches rawURL, retrying on 429/5xx responses and network timeouts
// with doubling backoff (1s, 2s, 4s, ...). Anything else fails immediately.
func (c *Client) Get(ctx context.Context, rawURL string) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Debug("fetch retry",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			c.sleep(ctx, backoff)
			if ctx.Err() != nil {
				return Result{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
			}
		}

		res, retryable, err := c.attempt(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable {
			return Result{}, err
		}
	}
	return Result{}, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Client) attempt(ctx context.Context, rawURL string) (Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{}, false, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Result{}, true, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		return Result{}, false, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
		return Result{}, retryableStatus[resp.StatusCode], err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, true, fmt.Errorf("read body %s: %w", rawURL, err)
	}
	return Result{StatusCode: resp.StatusCode, Body: body}, false, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
