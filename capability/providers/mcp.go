package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// SessionPool caches an MCP server's negotiated session id so repeated
// calls skip the initialize/session-create handshake (spec §4.C "MCP": "If
// a session pool exists, defer to it").
type SessionPool interface {
	Get(ctx context.Context, serverURL string) (sessionID string, ok bool)
	Put(ctx context.Context, serverURL, sessionID string, ttl time.Duration)
}

// RedisSessionPool backs the MCP session cache with Redis, shared across
// runtime instances the way the discovery pipeline shares its rank cache.
type RedisSessionPool struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionPool(client *redis.Client) *RedisSessionPool {
	return &RedisSessionPool{client: client, prefix: "ccos:mcp:session:"}
}

func (p *RedisSessionPool) Get(ctx context.Context, serverURL string) (string, bool) {
	v, err := p.client.Get(ctx, p.prefix+serverURL).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (p *RedisSessionPool) Put(ctx context.Context, serverURL, sessionID string, ttl time.Duration) {
	p.client.Set(ctx, p.prefix+serverURL, sessionID, ttl)
}

// MCP dispatches capability calls over the Model Context Protocol's
// JSON-RPC-over-HTTP transport (spec §4.C "MCP").
type MCP struct {
	Client  *http.Client
	Pool    SessionPool
	nextID  int
	timeout time.Duration
}

func NewMCP(pool SessionPool) *MCP {
	return &MCP{Client: &http.Client{Timeout: 30 * time.Second}, Pool: pool, timeout: 30 * time.Second}
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (m *MCP) Execute(ctx context.Context, manifest *capability.Manifest, inputs value.Value) (value.Value, error) {
	if manifest.BaseURL == "" {
		return value.Nil, ccoserr.New(ccoserr.KindProviderError, "mcp capability %q has no base URL", manifest.ID)
	}
	authToken := m.resolveAuthToken(manifest, inputs)

	sessionID := ""
	if m.Pool != nil {
		if sid, ok := m.Pool.Get(ctx, manifest.BaseURL); ok {
			sessionID = sid
		}
	}
	if sessionID == "" {
		sid, err := m.handshake(ctx, manifest.BaseURL, authToken)
		if err != nil {
			return value.Nil, err
		}
		sessionID = sid
		if m.Pool != nil && sessionID != "" {
			m.Pool.Put(ctx, manifest.BaseURL, sessionID, 10*time.Minute)
		}
	}

	toolName := manifest.Operation
	if toolName == "" || toolName == "*" {
		tools, err := m.call(ctx, manifest.BaseURL, sessionID, authToken, "tools/list", nil)
		if err != nil {
			return value.Nil, err
		}
		toolName, err = firstToolName(tools)
		if err != nil {
			return value.Nil, err
		}
	}

	argsJSON, err := value.ToJSON(inputs)
	if err != nil {
		return value.Nil, err
	}
	result, err := m.call(ctx, manifest.BaseURL, sessionID, authToken, "tools/call", map[string]any{
		"name":      toolName,
		"arguments": argsJSON,
	})
	if err != nil {
		return value.Nil, err
	}
	var decoded any
	if err := json.Unmarshal(result, &decoded); err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "decoding mcp tools/call result from %q", manifest.ID)
	}
	return value.FromJSON(decoded)
}

// resolveAuthToken implements the precedence inputs :auth-token >
// manifest.auth_token > env MCP_AUTH_TOKEN.
func (m *MCP) resolveAuthToken(manifest *capability.Manifest, inputs value.Value) string {
	if v, ok := inputs.MapGet(value.KeywordKey("auth-token")); ok {
		if s, ok := v.Str(); ok && s != "" {
			return s
		}
	}
	if manifest.AuthToken != "" {
		return manifest.AuthToken
	}
	return os.Getenv("MCP_AUTH_TOKEN")
}

// handshake sends `initialize`, absorbing any Mcp-Session-Id response
// header, then attempts `session/create` if the server advertises support.
func (m *MCP) handshake(ctx context.Context, baseURL, authToken string) (string, error) {
	resp, header, err := m.post(ctx, baseURL, "", authToken, jsonRPCRequest{
		JSONRPC: "2.0", ID: m.id(), Method: "initialize",
		Params: map[string]any{"protocolVersion": "2024-11-05"},
	})
	if err != nil {
		return "", err
	}
	if sid := header.Get("Mcp-Session-Id"); sid != "" {
		return sid, nil
	}

	var initResult struct {
		Capabilities struct {
			Sessions bool `json:"sessions"`
		} `json:"capabilities"`
	}
	_ = json.Unmarshal(resp, &initResult)
	if !initResult.Capabilities.Sessions {
		return "", nil
	}

	_, header2, err := m.post(ctx, baseURL, "", authToken, jsonRPCRequest{
		JSONRPC: "2.0", ID: m.id(), Method: "session/create",
	})
	if err != nil {
		return "", err
	}
	return header2.Get("Mcp-Session-Id"), nil
}

func (m *MCP) call(ctx context.Context, baseURL, sessionID, authToken, method string, params any) (json.RawMessage, error) {
	resp, _, err := m.post(ctx, baseURL, sessionID, authToken, jsonRPCRequest{
		JSONRPC: "2.0", ID: m.id(), Method: method, Params: params,
	})
	return resp, err
}

func (m *MCP) post(ctx context.Context, baseURL, sessionID, authToken string, rpc jsonRPCRequest) (json.RawMessage, http.Header, error) {
	payload, err := json.Marshal(rpc)
	if err != nil {
		return nil, nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "encoding mcp request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "building mcp request")
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "mcp call %q failed", rpc.Method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "reading mcp response for %q", rpc.Method)
	}
	var decoded jsonRPCResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "decoding mcp response for %q", rpc.Method)
	}
	if decoded.Error != nil {
		return nil, nil, ccoserr.New(ccoserr.KindProviderError, "mcp %q error %d: %s", rpc.Method, decoded.Error.Code, decoded.Error.Message)
	}
	return decoded.Result, resp.Header, nil
}

func (m *MCP) id() int {
	m.nextID++
	return m.nextID
}

func firstToolName(raw json.RawMessage) (string, error) {
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &list); err != nil || len(list.Tools) == 0 {
		return "", ccoserr.New(ccoserr.KindProviderError, "mcp tools/list returned no tools")
	}
	return list.Tools[0].Name, nil
}
