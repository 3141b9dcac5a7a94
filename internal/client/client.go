// Package client binds the election backend's read-only REST API. Every
// endpoint is a single GET; failed requests are turned into one display
// message, published as an api.error notification and returned to the
// caller as *APIError.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/debindra/election-2082-visualization-sub001/internal/config"
	"github.com/debindra/election-2082-visualization-sub001/internal/event"
	"github.com/debindra/election-2082-visualization-sub001/internal/logger"
)

// HeaderRequestID carries the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

// RequestObserver records per-endpoint request outcomes.
type RequestObserver interface {
	ObserveRequest(endpoint string, statusCode int, duration time.Duration, failed bool)
}

// Client is the backend API client. It is immutable after construction and
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	prefix     string
	headers    map[string]string
	notifier   event.Publisher
	logger     *zap.Logger
	metrics    RequestObserver
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The configured
// timeout is not applied to a caller-supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithNotifier sets where api.error notifications are published.
func WithNotifier(p event.Publisher) Option {
	return func(c *Client) {
		if p != nil {
			c.notifier = p
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records every request on m.
func WithMetrics(m RequestObserver) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRateLimit overrides the configured client-side rate limit. qps <= 0
// disables limiting.
func WithRateLimit(qps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = newLimiter(qps, burst)
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// NewClient creates a client for the backend described by cfg.
func NewClient(cfg config.APIConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidBaseURL)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    u,
		prefix:     normalizePrefix(cfg.Prefix),
		headers:    make(map[string]string),
		notifier:   nopPublisher{},
		logger:     zap.NewNop(),
		limiter:    newLimiter(cfg.RateLimitQPS, cfg.RateLimitBurst),
	}

	c.headers["Accept"] = "application/json"
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "electionctl/1.0"
	}
	c.headers["User-Agent"] = userAgent

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin, without the API prefix.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Prefix returns the versioned API path prefix.
func (c *Client) Prefix() string {
	return c.prefix
}

func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func newLimiter(qps float64, burst int) *rate.Limiter {
	if qps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(qps), burst)
}

// request describes one GET. route is the path template used as the
// metrics label; path is the concrete path relative to the prefix.
type request struct {
	route    string
	path     string
	params   *Params
	noPrefix bool
}

// get issues req and decodes a successful JSON body into out.
func (c *Client) get(ctx context.Context, req request, out any) error {
	endpoint := req.path
	if !req.noPrefix {
		endpoint = c.prefix + req.path
	}
	requestID := uuid.NewString()
	ctx, log := logger.WithRequestID(ctx, c.logger, requestID)
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.fail(ctx, req.route, start, &APIError{
				Endpoint:  endpoint,
				Message:   err.Error(),
				RequestID: requestID,
				Err:       err,
			})
		}
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + endpoint
	u.RawQuery = req.params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", endpoint, err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set(HeaderRequestID, requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.fail(ctx, req.route, start, &APIError{
			Endpoint:  endpoint,
			Message:   err.Error(),
			RequestID: requestID,
			Err:       err,
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ctx, req.route, start, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    err.Error(),
			RequestID:  requestID,
			Err:        fmt.Errorf("reading response body: %w", err),
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(ctx, req.route, start, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    ErrorMessage(resp.StatusCode, body),
			Body:       body,
			RequestID:  requestID,
		})
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return c.fail(ctx, req.route, start, &APIError{
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Message:    "Invalid response body: " + err.Error(),
				Body:       body,
				RequestID:  requestID,
				Err:        fmt.Errorf("decoding response: %w", err),
			})
		}
	}

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveRequest(req.route, resp.StatusCode, duration, false)
	}
	log.Debug("api request",
		zap.String("endpoint", endpoint),
		zap.String("query", u.RawQuery),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return nil
}

// fail is the single error interceptor: it records the failure, publishes
// the notification and hands the error back to the caller.
func (c *Client) fail(ctx context.Context, route string, start time.Time, apiErr *APIError) error {
	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveRequest(route, apiErr.StatusCode, duration, true)
	}

	// ctx carries the request-scoped logger set up by get.
	log := logger.FromContext(ctx)
	if apiErr.RequestID == "" {
		apiErr.RequestID = logger.GetRequestID(ctx)
	}
	log.Warn("api request failed",
		zap.String("endpoint", apiErr.Endpoint),
		zap.Int("status", apiErr.StatusCode),
		zap.String("message", apiErr.Message),
		zap.Duration("duration", duration),
	)

	// The notification must go out even when the caller's context is done.
	notifyCtx := context.WithoutCancel(ctx)
	evt := event.NewAPIError(apiErr.Message, apiErr.Endpoint, apiErr.StatusCode, apiErr.RequestID)
	if err := c.notifier.Publish(notifyCtx, evt); err != nil {
		log.Error("publishing api error notification", zap.Error(err))
	}
	return apiErr
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...event.Event) error { return nil }
