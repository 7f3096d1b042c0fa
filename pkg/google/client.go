// Package google provides clients for the Google Maps web services used to
// walk a region: Directions for street traces and Street View Static for
// panorama metadata and imagery.
package google

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/panowalk/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com"

// Option configures a client.
type Option func(*baseClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *baseClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *baseClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *baseClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit paces outbound requests to rps per second. A non-positive
// rate disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *baseClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy applied to route requests. Street View
// metadata lookups are retried by the caller instead.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *baseClient) {
		c.retry = cfg
	}
}

type baseClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

func newBaseClient(apiKey string, opts []Option) *baseClient {
	c := &baseClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// get issues a keyed GET request and returns the open response. Transport
// failures and retryable HTTP statuses come back as transient errors; other
// non-200 statuses are permanent. The caller owns the body on success.
func (c *baseClient) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "google: rate limit wait")
		}
	}

	params.Set("key", c.apiKey)
	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "google: send request")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "google: send request"), 0)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close() //nolint:errcheck
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return resp, nil
}

// closeIdle releases pooled connections held by the underlying transport.
func (c *baseClient) closeIdle() {
	c.http.CloseIdleConnections()
}

// statusError builds the error for a non-OK API status string, marking
// self-clearing statuses as transient.
func statusError(api, status, message string) error {
	msg := status
	if message != "" {
		msg = fmt.Sprintf("%s: %s", status, message)
	}
	err := eris.Errorf("google: %s status %s", api, msg)
	if resilience.IsTransientAPIStatus(status) {
		return resilience.NewTransientError(err, http.StatusOK)
	}
	return err
}
