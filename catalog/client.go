package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/rawhttp"
	"golang.org/x/time/rate"
)

var (
	// ErrBackend is returned when the catalog cannot be reached or answers with a non-2xx status.
	ErrBackend = errors.New("backend server failed")

	// ErrUnexpectedContent is returned when the catalog answers with something other than JSON.
	ErrUnexpectedContent = errors.New("unexpected response content")
)

// Default batch limits, matching what the browser application requested.
const (
	DefaultLaunchpadLimit = 10
	DefaultLaunchLimit    = 200
	DefaultTimeout        = 30 * time.Second
)

var _ domain.Catalog = (*Client)(nil)

// Client talks to the catalog API. It is safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         *slog.Logger
	trace          bool
	launchpadLimit int
	launchLimit    int
}

// New creates a Client for DefaultBaseURL and applies options in order.
func New(options ...func(*Client) error) (*Client, error) {
	c := &Client{
		baseURL:        DefaultBaseURL,
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		limiter:        rate.NewLimiter(rate.Inf, 1),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		launchpadLimit: DefaultLaunchpadLimit,
		launchLimit:    DefaultLaunchLimit,
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, fmt.Errorf("applying option on catalog client : %w", err)
		}
	}
	return c, nil
}

// WithBaseURL points the client at another catalog deployment.
func WithBaseURL(baseURL string) func(*Client) error {
	return func(c *Client) error {
		baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if baseURL == "" {
			return errors.New("base url cannot be empty")
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) func(*Client) error {
	return func(c *Client) error {
		if httpClient == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = httpClient
		return nil
	}
}

// WithTimeout bounds every request, including reading the body.
func WithTimeout(timeout time.Duration) func(*Client) error {
	return func(c *Client) error {
		if timeout < 0 {
			return fmt.Errorf("invalid timeout %s", timeout)
		}
		c.httpClient.Timeout = timeout
		return nil
	}
}

// WithChromeFingerprint sends requests through a transport whose TLS
// handshake looks like Chrome's.
func WithChromeFingerprint() func(*Client) error {
	return func(c *Client) error {
		c.httpClient.Transport = newChromeTransport()
		return nil
	}
}

// WithRateLimit allows perSecond requests per second with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) func(*Client) error {
	return func(c *Client) error {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithLimits sets the maximum number of launchpads and launches per batch.
func WithLimits(launchpads, launches int) func(*Client) error {
	return func(c *Client) error {
		if launchpads <= 0 || launches <= 0 {
			return fmt.Errorf("limits must be positive, got %d and %d", launchpads, launches)
		}
		c.launchpadLimit = launchpads
		c.launchLimit = launches
		return nil
	}
}

// WithLogger sets the logger. A nil logger keeps the discarding default.
func WithLogger(logger *slog.Logger) func(*Client) error {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithTrace logs a dump of every request and response at debug level.
func WithTrace(enabled bool) func(*Client) error {
	return func(c *Client) error {
		c.trace = enabled
		return nil
	}
}

// FetchLaunchpads returns the launchpad batch.
func (c *Client) FetchLaunchpads(ctx context.Context) ([]domain.Launchpad, error) {
	var res result[domain.Launchpad]
	if err := c.post(ctx, LaunchpadsPath, LaunchpadsQuery(c.launchpadLimit), &res); err != nil {
		return nil, fmt.Errorf("fetching launchpads: %w", err)
	}
	c.logger.Debug("launchpads fetched", "count", len(res.Docs))
	return nonNil(res.Docs), nil
}

// FetchLaunches returns the launch batch of launchpadID.
func (c *Client) FetchLaunches(ctx context.Context, launchpadID string) ([]domain.Launch, error) {
	var res result[domain.Launch]
	if err := c.post(ctx, LaunchesPath, LaunchesQuery(launchpadID, c.launchLimit), &res); err != nil {
		return nil, fmt.Errorf("fetching launches of %s: %w", launchpadID, err)
	}
	c.logger.Debug("launches fetched", "launchpad", launchpadID, "count", len(res.Docs))
	return nonNil(res.Docs), nil
}

func nonNil[T any](docs []T) []T {
	if docs == nil {
		return []T{}
	}
	return docs
}

// post sends q to path and decodes the JSON answer into out.
func (c *Client) post(ctx context.Context, path string, q Query, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")

	if c.trace {
		if dump, err := rawhttp.DumpRequest(req); err == nil {
			c.logger.Debug("catalog request", "path", path, "dump", dump.String())
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	defer res.Body.Close()

	if err := rawhttp.Decompress(res); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}

	if c.trace {
		if dump, err := rawhttp.DumpResponse(res); err == nil {
			c.logger.Debug("catalog response", "path", path, "status", res.StatusCode, "dump", dump.String())
		}
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrBackend, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn("catalog request failed", "path", path, "status", res.StatusCode)
		return fmt.Errorf("%w: %s returned %s", ErrBackend, path, res.Status)
	}

	if !json.Valid(data) {
		return fmt.Errorf("%w: %s returned %s", ErrUnexpectedContent, path, mimetype.Detect(data).String())
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrUnexpectedContent, path, err)
	}
	return nil
}
