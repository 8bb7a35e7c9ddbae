// Package httpclient provides the outbound client used for price and
// distance providers: a circuit breaker and a request quota, no retries.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/cristianortiz/gridshare/internal/shared/metrics"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var log = logger.GetLogger()

// APIError represents a non 2xx upstream response
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d body=%s", e.StatusCode, string(e.Body))
}

type Config struct {
	Name      string        // upstream label used in logs and metrics
	Timeout   time.Duration // per request, on top of the caller's context
	RateLimit float64       // requests per second, <= 0 disables the quota
}

// Client is a wrapper around http.Client with a circuit breaker and a quota
type Client struct {
	name     string
	client   *http.Client
	limiter  *rate.Limiter
	pipeline failsafe.Executor[*http.Response]
}

func New(cfg Config) *Client {
	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(10 * time.Second).
		Build()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}

	return &Client{
		name:     cfg.Name,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  limiter,
		pipeline: failsafe.With[*http.Response](breaker),
	}
}

// Get sends a GET request to rawURL with params appended to its query.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid url: %w", c.name, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.name, err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	body, err := c.execute(req)
	metrics.UpstreamLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues(c.name, metrics.Result(err)).Inc()
	if err != nil {
		log.Warn("Upstream request failed",
			zap.String("upstream", c.name),
			zap.String("host", req.URL.Host),
			zap.String("path", req.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
	return body, err
}

func (c *Client) execute(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", c.name, err)
	}

	resp, err := c.pipeline.GetWithExecution(func(exec failsafe.Execution[*http.Response]) (*http.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w", c.name, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
