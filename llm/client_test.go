package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Complete(_ context.Context, req Request) (*Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, ccoserr.New(ccoserr.KindProviderError, "transient failure %d", f.calls)
	}
	return &Response{Content: "ok", Model: req.Model}, nil
}

type permanentProvider struct{ calls int }

func (p *permanentProvider) Name() string { return "permanent" }

func (p *permanentProvider) Complete(context.Context, Request) (*Response, error) {
	p.calls++
	return nil, ccoserr.New(ccoserr.KindUnknownCapability, "not retryable")
}

func TestClientRetriesTransientFailures(t *testing.T) {
	p := &flakyProvider{failures: 2}
	c := NewClient(p).WithRetry(5, time.Millisecond, 10*time.Millisecond)

	resp, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, p.calls)
}

func TestClientStopsOnNonRetryableError(t *testing.T) {
	p := &permanentProvider{}
	c := NewClient(p).WithRetry(5, time.Millisecond, 10*time.Millisecond)

	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestClientRequiresAtLeastOneMessage(t *testing.T) {
	c := NewClient(&flakyProvider{})
	_, err := c.Complete(context.Background(), Request{})
	require.Error(t, err)
}
