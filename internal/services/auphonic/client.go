package auphonic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"podtenuki/internal/logging"
	"podtenuki/internal/services"
	"podtenuki/internal/usage"
)

const (
	defaultBaseURL        = "https://auphonic.com/api"
	defaultHTTPTimeout    = 300 * time.Second
	defaultRetryMaxElapse = 20 * time.Second
	maxErrorBody          = 4096
	stageName             = "enhancement"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config captures the settings required to talk to the enhancement API.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Timing holds the waits used across a production lifecycle.
type Timing struct {
	Settle             time.Duration
	ExtendedSettle     time.Duration
	RetrySettle        time.Duration
	PollInterval       time.Duration
	PollTimeout        time.Duration
	ResultPollInterval time.Duration
	ResultPollTimeout  time.Duration
}

// DefaultTiming mirrors the service's observed readiness behaviour.
func DefaultTiming() Timing {
	return Timing{
		Settle:             60 * time.Second,
		ExtendedSettle:     120 * time.Second,
		RetrySettle:        60 * time.Second,
		PollInterval:       30 * time.Second,
		PollTimeout:        time.Hour,
		ResultPollInterval: 10 * time.Second,
		ResultPollTimeout:  300 * time.Second,
	}
}

// Client wraps the Auphonic production API.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
	logger     *slog.Logger
	usage      *usage.Tracker
	classifier Classifier
	timing     Timing
	retry      UploadRetry
	newBackOff func() backoff.BackOff
	sleep      func(context.Context, time.Duration) error
	now        func() time.Time
	progress   func(phase string, total int64) io.Writer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUsage records processed minutes in tracker.
func WithUsage(tracker *usage.Tracker) Option {
	return func(c *Client) { c.usage = tracker }
}

// WithClassifier overrides the status interpretation rules.
func WithClassifier(classifier Classifier) Option {
	return func(c *Client) { c.classifier = classifier }
}

// WithTiming overrides lifecycle waits.
func WithTiming(timing Timing) Option {
	return func(c *Client) { c.timing = timing }
}

// WithUploadRetry replaces the recovery used when an upload is not recognised.
// Passing nil disables recovery.
func WithUploadRetry(retry UploadRetry) Option {
	return func(c *Client) { c.retry = retry }
}

// WithBackOff overrides the retry policy for idempotent requests.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		if factory != nil {
			c.newBackOff = factory
		}
	}
}

// WithSleeper overrides how waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleep = sleeper
		}
	}
}

// WithClock overrides the time source used for poll deadlines.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithProgress attaches a byte counter to uploads and downloads.
func WithProgress(factory func(phase string, total int64) io.Writer) Option {
	return func(c *Client) { c.progress = factory }
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
		classifier: DefaultClassifier(),
		timing:     DefaultTiming(),
		retry:      OctetStreamRetry{},
		newBackOff: func() backoff.BackOff {
			policy := backoff.NewExponentialBackOff()
			policy.MaxElapsedTime = defaultRetryMaxElapse
			return policy
		},
		sleep: sleepContext,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	client.logger = logging.NewComponentLogger(client.logger, "auphonic")
	return client
}

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (c *Client) endpoint(path string) string {
	return c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "request", "api key required", nil)
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.endpoint(target)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// postJSON issues a single non-idempotent request.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, path)
}

// getJSON retries transport failures and 5xx/429 responses.
func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		payload, err := c.do(req, path)
		if err != nil {
			if !retryableRequestError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = payload
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying enhancement request",
			logging.String("path", path),
			logging.Duration("wait", wait),
			logging.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, stageName, req.Method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, req.Method+" "+path, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     req.Method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && strings.TrimSpace(envelope.ErrorMessage) != "" {
		return strings.TrimSpace(envelope.ErrorMessage)
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return snippet(body)
}

func retryableRequestError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode >= 500
	}
	return services.Retryable(err)
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return c.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func productionPath(id, suffix string) string {
	return "production/" + url.PathEscape(id) + suffix
}

// FetchProduction returns the current state of a production.
func (c *Client) FetchProduction(ctx context.Context, id string) (Production, error) {
	if strings.TrimSpace(id) == "" {
		return Production{}, services.Wrap(services.ErrValidation, stageName, "status", "production id required", nil)
	}
	body, err := c.getJSON(ctx, productionPath(id, ".json"))
	if err != nil {
		return Production{}, err
	}
	production, err := decodeProduction(body)
	if err != nil {
		return Production{}, services.Wrap(services.ErrTransient, stageName, "status", "decode production", err)
	}
	return production, nil
}
