// Package transport is the authenticated HTTP capability used by the
// exporter: text GETs for paginated JSON and byte GETs for attachments.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// maxErrorBody bounds how much of an error response ends up in an APIError.
const maxErrorBody = 512

// Client performs authenticated, rate limited GET requests.
// Requests are never retried.
type Client struct {
	http      *http.Client
	auth      Authenticator
	token     string
	userAgent string
	limiter   *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithAuthenticator replaces the default Authorization header authenticator.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *Client) {
		if auth != nil {
			c.auth = auth
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit limits requests per second. A value <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a new transport client for the given API token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      &HeaderAuth{Header: "Authorization"},
		token:     token,
		userAgent: constants.DefaultUserAgent,
		limiter:   rate.NewLimiter(rate.Limit(constants.DefaultRateLimit), constants.DefaultRateBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetText fetches url and returns the body as text. Any non-2xx status is an APIError.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	resp, err := c.GetBytes(ctx, url)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", resp.Err(url)
	}
	return string(resp.Body), nil
}

// GetBytes fetches url and returns status, body and headers. Only network
// failures are errors here; callers decide which statuses they accept.
func (c *Client) GetBytes(ctx context.Context, url string) (*Response, error) {
	endpoint := Scrub(url)
	logger := logging.Ctx(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapAPI(endpoint, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeQuery(url), nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+endpoint, err)
	}

	if c.token != "" {
		c.auth.Apply(req, c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	logger.Debug().Str("url", endpoint).Msg("GET")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapAPI(endpoint, 0, scrubError(err, c.token))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn().Err(cerr).Str("url", endpoint).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapAPI(endpoint, resp.StatusCode, errors.WrapIO("read", "response body", err))
	}

	logger.Debug().
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("Response received")

	return &Response{
		Status: resp.StatusCode,
		Body:   body,
		Header: resp.Header,
	}, nil
}
