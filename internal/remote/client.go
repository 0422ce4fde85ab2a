// Package remote is the shared HTTP plumbing used by every service that
// talks to the weather API: URL building, JSON encoding, authorization,
// rate limiting, retries, circuit breaking, metrics and logging.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Authorizer decorates a request with credentials.
type Authorizer interface {
	Authorize(req *http.Request)
}

// Call describes one API request.
type Call struct {
	// Endpoint labels the call in logs and metrics, e.g. "favorites.list".
	Endpoint string
	Method   string
	// Path is the already-escaped path, starting with "/".
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	Auth Authorizer
}

// Doer executes API calls. *Client implements it.
type Doer interface {
	Do(ctx context.Context, call Call, out any) error
}

// Config bundles connection and resilience settings.
type Config struct {
	BaseURL string
	// Timeout bounds each HTTP attempt. Zero means no timeout.
	Timeout   time.Duration
	Backoff   BackoffConfig
	RateLimit float64 // requests per second; <= 0 disables limiting
	RateBurst int
}

// Client talks JSON over HTTP to the weather API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    BackoffConfig
	circuit    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	metrics    *Metrics
	log        logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records calls into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client for the API rooted at cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: scheme and host are required", cfg.BaseURL)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		backoff:    cfg.Backoff,
		circuit:    newCircuitBreaker("weather-api"),
		limiter:    limiter,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL builds an absolute URL for an escaped path and query.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do executes call and decodes a successful JSON response into out (which
// may be nil). Failures are *StatusError, wrap ErrTransport, or are decode
// errors.
func (c *Client) Do(ctx context.Context, call Call, out any) error {
	start := time.Now()
	err := c.do(ctx, call, out)
	c.metrics.observe(call.Endpoint, outcome(err), time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, call Call, out any) error {
	var body []byte
	if call.Body != nil {
		var err error
		body, err = json.Marshal(call.Body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", call.Endpoint, err)
		}
	}

	requestID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{
		"endpoint":   call.Endpoint,
		"method":     call.Method,
		"request_id": requestID,
	})

	resp, err := c.send(ctx, call.Method, c.URL(call.Path, call.Query), body, requestID, call.Auth)
	if err != nil {
		log.WithError(err).Warn("api call failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Code: resp.StatusCode, Detail: readDetail(resp.Body)}
		log.WithField("status", resp.StatusCode).Debug("api call rejected")
		return se
	}

	log.WithField("status", resp.StatusCode).Debug("api call succeeded")
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", call.Endpoint, err)
	}
	return nil
}

// Download streams the resource at rawURL into w. It is used by sinks that
// render a ResourceRef themselves.
func (c *Client) Download(ctx context.Context, rawURL string, auth Authorizer, w io.Writer) error {
	start := time.Now()
	err := func() error {
		resp, err := c.send(ctx, http.MethodGet, rawURL, nil, uuid.NewString(), auth)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode, Detail: readDetail(resp.Body)}
		}
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return nil
	}()
	c.metrics.observe("resource.download", outcome(err), time.Since(start))
	return err
}

func (c *Client) send(ctx context.Context, method, target string, body []byte, requestID string, auth Authorizer) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	buildRequest := func() (*http.Request, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequest(method, target, r)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("X-Request-ID", requestID)
		if auth != nil {
			auth.Authorize(req)
		}
		return req, nil
	}

	// Only reads are retried; a repeated POST could double-apply.
	return doRequestWithResilience(ctx, c.httpClient, c.backoff, c.circuit, method == http.MethodGet, buildRequest)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var se *StatusError
	switch {
	case errors.As(err, &se) && se.Code >= 500:
		return "server_error"
	case errors.As(err, &se):
		return "rejected"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
