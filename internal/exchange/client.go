package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnexpectedPayload marks a response whose JSON shape an adapter cannot read.
	ErrUnexpectedPayload = errors.New("unexpected payload shape")
	// ErrNotJSON marks a 200 response that does not carry a JSON content type.
	ErrNotJSON = errors.New("response is not JSON")
)

// ClientConfig controls timeouts and the retry policy shared by every adapter.
type ClientConfig struct {
	Timeout        time.Duration
	UserAgent      string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultClientConfig returns the production retry policy: 5 attempts,
// 300ms doubling to a 3s cap, 10s per request.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:        10 * time.Second,
		UserAgent:      "arb-scanner/2.0",
		MaxAttempts:    5,
		InitialBackoff: 300 * time.Millisecond,
		MaxBackoff:     3 * time.Second,
		Multiplier:     2,
	}
}

// HTTPStatusError reports a non-200 reply.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s returned HTTP %d", e.URL, e.StatusCode)
}

// Client performs public GET requests against exchange REST APIs.
type Client struct {
	http   *http.Client
	cfg    ClientConfig
	logger logrus.FieldLogger
}

func NewClient(cfg ClientConfig, logger logrus.FieldLogger) *Client {
	defaults := DefaultClientConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaults.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = defaults.Multiplier
	}
	return &Client{
		http:   &http.Client{},
		cfg:    cfg,
		logger: logger,
	}
}

// GetJSON fetches rawURL with params and decodes the body into out. Transport
// failures, non-200 replies, non-JSON content types and malformed bodies are
// retried with exponential backoff; a body that parses but does not fit out is
// returned immediately.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	target := rawURL
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		target = rawURL + sep + params.Encode()
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := c.fetchOnce(ctx, target, out)
		if err != nil && ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		return struct{}{}, err
	}

	policy := &backoff.ExponentialBackOff{
		InitialInterval:     c.cfg.InitialBackoff,
		RandomizationFactor: 0,
		Multiplier:          c.cfg.Multiplier,
		MaxInterval:         c.cfg.MaxBackoff,
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.WithFields(logrus.Fields{
				"url":     target,
				"attempt": attempt,
				"wait":    wait.String(),
			}).WithError(err).Debug("Exchange request failed, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("GET %s failed after %d attempt(s): %w", target, attempt, err)
	}
	return nil
}

func (c *Client) fetchOnce(ctx context.Context, target string, out interface{}) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &HTTPStatusError{URL: target, StatusCode: resp.StatusCode}
	}

	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "json") {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: content-type %q", ErrNotJSON, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUnexpectedPayload, err))
		}
		return fmt.Errorf("bad JSON body: %w", err)
	}
	return nil
}
