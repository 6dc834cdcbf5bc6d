package salesforce

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/http"
	"github.com/sfextract/sf-attachments/internal/logging"
	"github.com/sfextract/sf-attachments/internal/ratelimit"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 * 1024

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not every request
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// ClientOptions configure NewClient. Zero values select defaults.
type ClientOptions struct {
	// HTTPClient carries proxy and TLS settings for metadata calls.
	HTTPClient *nethttp.Client
	// TransferClient is used for attachment bodies (no overall timeout).
	TransferClient *nethttp.Client
	// RequestsPerSecond paces all calls; 0 disables pacing.
	RequestsPerSecond float64
	Burst             int
	// RetryMax is the number of extra attempts for transient failures.
	// The default of 0 means every request is tried exactly once.
	RetryMax int
	Logger   *logging.Logger
}

// Client is a REST client bound to one session.
type Client struct {
	session  Session
	api      *nethttp.Client
	transfer *nethttp.Client
	limiter  *ratelimit.RateLimiter
	logger   *logging.Logger
}

// NewClient creates a client for session.
func NewClient(session Session, opts ClientOptions) (*Client, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	base := opts.HTTPClient
	if base == nil {
		base = &nethttp.Client{Timeout: constants.HTTPClientTimeout}
	}
	transfer := opts.TransferClient
	if transfer == nil {
		transfer = &nethttp.Client{}
	}

	burst := opts.Burst
	if burst == 0 {
		burst = constants.DefaultRequestBurst
	}

	return &Client{
		session:  session,
		api:      wrapRetry(base, opts.RetryMax, logger),
		transfer: wrapRetry(transfer, opts.RetryMax, logger),
		limiter:  ratelimit.NewRateLimiter(opts.RequestsPerSecond, burst),
		logger:   logger,
	}, nil
}

// wrapRetry layers retryablehttp over c. Failures that exhaust the
// attempts are passed through unchanged so status codes can be mapped.
func wrapRetry(c *nethttp.Client, retryMax int, logger *logging.Logger) *nethttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = c
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.CheckRetry = http.RetryPolicy
	retryClient.Backoff = http.JitterBackoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = &retryLogger{logger: logger}

	std := retryClient.StandardClient()
	std.Timeout = c.Timeout
	return std
}

// Session returns the session the client was built with.
func (c *Client) Session() Session {
	return c.session
}

// get performs an authenticated GET. Non-2xx responses are mapped to the
// error taxonomy and their bodies closed; on success the caller owns the body.
func (c *Client) get(ctx context.Context, hc *nethttp.Client, op, url, attachmentID string) (*nethttp.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, requestError(ctx, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(op, resp.StatusCode, body, attachmentID)
	}

	return resp, nil
}
