package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// Client retries a single Provider's Complete call with exponential
// backoff (spec §4.H "Attempts and outcomes are logged" implies a bounded
// retry loop around a possibly-flaky backend). The teacher's own
// llm.Client hand-rolls a RetryConfig/backoff loop because semspec has no
// backoff dependency in its go.mod; CCOS does pull
// github.com/cenkalti/backoff/v4, so retrying is delegated to it instead
// of reimplementing exponential backoff by hand.
type Client struct {
	provider    Provider
	maxAttempts uint64
	initial     time.Duration
	max         time.Duration
	logger      *slog.Logger
}

// NewClient builds a Client around provider with CCOS's default retry
// envelope: 3 attempts, 500ms initial backoff doubling up to 5s.
func NewClient(provider Provider) *Client {
	return &Client{
		provider:    provider,
		maxAttempts: 3,
		initial:     500 * time.Millisecond,
		max:         5 * time.Second,
		logger:      slog.Default(),
	}
}

// WithRetry overrides the retry envelope.
func (c *Client) WithRetry(maxAttempts uint64, initial, max time.Duration) *Client {
	c.maxAttempts = maxAttempts
	c.initial = initial
	c.max = max
	return c
}

// WithLogger overrides the logger retry attempts are reported to, mirroring
// the teacher's constructor-injection logging convention (config/loader.go,
// llm/client.go both take a *slog.Logger rather than reaching for a global).
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// Complete calls the wrapped Provider, retrying transient failures with
// exponential backoff and giving up after maxAttempts.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.provider == nil {
		return nil, ccoserr.New(ccoserr.KindInternalError, "llm client: no provider configured")
	}
	if len(req.Messages) == 0 {
		return nil, ccoserr.New(ccoserr.KindInternalError, "llm client: at least one message is required")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = c.max
	bounded := backoff.WithMaxRetries(b, c.maxAttempts-1)
	withCtx := backoff.WithContext(bounded, ctx)

	var resp *Response
	attempt := 0
	op := func() error {
		attempt++
		r, err := c.provider.Complete(ctx, req)
		if err != nil {
			if ccoserr.Retryable(err) {
				if c.logger != nil {
					c.logger.Warn("llm completion attempt failed, retrying", "provider", c.provider.Name(), "attempt", attempt, "error", err)
				}
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, withCtx); err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "llm completion via %q failed", c.provider.Name())
	}
	return resp, nil
}
