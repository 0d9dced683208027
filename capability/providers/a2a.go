package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// A2A dispatches agent-to-agent capability calls (spec §4.C "A2A"). Only
// the HTTP transport is implemented; WebSocket/gRPC report Unimplemented.
type A2A struct {
	Client *http.Client
}

func NewA2A() *A2A {
	return &A2A{Client: &http.Client{Timeout: 30 * time.Second}}
}

type a2aRequest struct {
	AgentID    string    `json:"agent_id"`
	Capability string    `json:"capability"`
	Inputs     any       `json:"inputs"`
	Timestamp  time.Time `json:"timestamp"`
}

type a2aResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (a *A2A) Execute(ctx context.Context, manifest *capability.Manifest, inputs value.Value) (value.Value, error) {
	if manifest.BaseURL == "" {
		return value.Nil, ccoserr.New(ccoserr.KindProviderError, "a2a capability %q has no base URL", manifest.ID)
	}
	inputsJSON, err := value.ToJSON(inputs)
	if err != nil {
		return value.Nil, err
	}
	payload, err := json.Marshal(a2aRequest{
		AgentID:    manifest.ID,
		Capability: "execute",
		Inputs:     inputsJSON,
		Timestamp:  time.Now(),
	})
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "encoding a2a request for %q", manifest.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, manifest.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "building a2a request for %q", manifest.ID)
	}
	req.Header.Set("Content-Type", "application/json")
	if manifest.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+manifest.AuthToken)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "a2a call to %q failed", manifest.ID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "reading a2a response from %q", manifest.ID)
	}

	var decoded a2aResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "decoding a2a response from %q", manifest.ID)
	}
	if decoded.Error != "" {
		return value.Nil, ccoserr.New(ccoserr.KindProviderError, "a2a agent %q returned error: %s", manifest.ID, decoded.Error)
	}
	return value.FromJSON(decoded.Result)
}

// A2AWebSocket and A2AGRPC are not implemented; both transports report
// Unimplemented per spec §4.C.
type A2AWebSocket struct{}

func (A2AWebSocket) Execute(context.Context, *capability.Manifest, value.Value) (value.Value, error) {
	return value.Nil, ccoserr.New(ccoserr.KindProviderError, "a2a websocket transport is unimplemented")
}

type A2AGRPC struct{}

func (A2AGRPC) Execute(context.Context, *capability.Manifest, value.Value) (value.Value, error) {
	return value.Nil, ccoserr.New(ccoserr.KindProviderError, "a2a grpc transport is unimplemented")
}
