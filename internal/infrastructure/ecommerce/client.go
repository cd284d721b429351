// Package ecommerce contains the HTTP adapters for the supported
// commerce platforms.
package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/platform"
)

// maxResponseSize bounds how much of a platform response we read (10MB)
const maxResponseSize = 10 * 1024 * 1024

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 10 * time.Second
)

// authFunc attaches platform-specific auth headers to an outbound request
type authFunc func(req *http.Request, creds platform.Credentials)

// httpCore is the transport shared by the platform adapters. It owns the
// retry loop: at most one credential refresh on 401, and 429 backoff
// bounded by the per-call attempt budget. All backoff state is local to
// one call.
type httpCore struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	setAuth    authFunc
}

func newHTTPCore(name, baseURL string, timeout time.Duration, logger *zap.Logger, setAuth authFunc) *httpCore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpCore{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		setAuth:    setAuth,
	}
}

func (c *httpCore) call(ctx context.Context, creds platform.Credentials, req platform.Request, opts platform.CallOptions) (*platform.Envelope, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = platform.DefaultMaxAttempts
	}

	refreshed := false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		body, status, retryAfter, err := c.doRequest(ctx, creds, req)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusUnauthorized:
			if refreshed || opts.Refresh == nil {
				return nil, fmt.Errorf("%w: HTTP 401 from %s", platform.ErrAuth, c.name)
			}
			newCreds, rerr := opts.Refresh(ctx)
			if rerr != nil {
				return nil, fmt.Errorf("%w: token refresh failed: %v", platform.ErrAuth, rerr)
			}
			creds = newCreds
			refreshed = true
			// the refresh retry does not consume the rate-limit budget
			attempt--
			continue

		case status == http.StatusTooManyRequests:
			if attempt == maxAttempts-1 {
				return nil, fmt.Errorf("%w: %s still throttling after %d attempts", platform.ErrRateLimited, c.name, maxAttempts)
			}
			wait := backoffDelay(retryAfter, attempt)
			c.logger.Warn("platform throttled, backing off",
				zap.String("platform", c.name),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt+1),
			)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case status == http.StatusForbidden:
			return nil, fmt.Errorf("%w: HTTP 403 from %s", platform.ErrAuth, c.name)

		case status >= 400:
			return nil, fmt.Errorf("%w: HTTP %d from %s", platform.ErrUpstream, status, c.name)
		}

		return platform.ParseEnvelope(body)
	}

	return nil, fmt.Errorf("%w: %s call exhausted %d attempts", platform.ErrRateLimited, c.name, maxAttempts)
}

// doRequest performs one HTTP round trip and returns the body, status code
// and any Retry-After header value.
func (c *httpCore) doRequest(ctx context.Context, creds platform.Credentials, req platform.Request) ([]byte, int, string, error) {
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		values := url.Values{}
		for k, v := range req.Query {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, 0, "", fmt.Errorf("%s: failed to encode request body: %w", c.name, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, bodyReader)
	if err != nil {
		return nil, 0, "", fmt.Errorf("%s: failed to create request: %w", c.name, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(httpReq, creds)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: %v", platform.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, "", fmt.Errorf("%s: failed to read response: %w", c.name, err)
	}

	return body, resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// backoffDelay honors Retry-After when the platform sends one (seconds or
// HTTP-date), else falls back to capped exponential backoff.
func backoffDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(retryAfter); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
			return 0
		}
	}

	delay := backoffBase << uint(attempt)
	if delay > backoffCap {
		delay = backoffCap
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
