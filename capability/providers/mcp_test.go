package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/value"
)

// fakeSessionPool is an in-memory SessionPool for tests, avoiding a real
// Redis dependency.
type fakeSessionPool struct {
	sessions map[string]string
}

func newFakeSessionPool() *fakeSessionPool { return &fakeSessionPool{sessions: map[string]string{}} }

func (p *fakeSessionPool) Get(_ context.Context, serverURL string) (string, bool) {
	v, ok := p.sessions[serverURL]
	return v, ok
}

func (p *fakeSessionPool) Put(_ context.Context, serverURL, sessionID string, _ time.Duration) {
	p.sessions[serverURL] = sessionID
}

func TestMCPExecuteHandshakeAndToolsCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Method {
		case "initialize":
			w.Header().Set("Mcp-Session-Id", "sess-1")
			json.NewEncoder(w).Encode(jsonRPCResponse{ID: req.ID, Result: json.RawMessage(`{}`)})
		case "tools/call":
			json.NewEncoder(w).Encode(jsonRPCResponse{ID: req.ID, Result: json.RawMessage(`{"sum":7}`)})
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
	}))
	defer srv.Close()

	pool := newFakeSessionPool()
	m := NewMCP(pool)
	manifest := &capability.Manifest{ID: "math.add", BaseURL: srv.URL, Operation: "add"}

	v, err := m.Execute(t.Context(), manifest, value.Vector(value.Int(3), value.Int(4)))
	require.NoError(t, err)
	sum, ok := v.MapGet(value.KeywordKey("sum"))
	require.True(t, ok)
	i, _ := sum.Int()
	assert.Equal(t, int64(7), i)

	_, cached := pool.Get(t.Context(), srv.URL)
	assert.True(t, cached)
}

func TestMCPExecuteReusesSessionFromPool(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tools/call", req.Method)
		assert.Equal(t, "cached-session", r.Header.Get("Mcp-Session-Id"))
		json.NewEncoder(w).Encode(jsonRPCResponse{ID: req.ID, Result: json.RawMessage(`{"ok":true}`)})
	}))
	defer srv.Close()

	pool := newFakeSessionPool()
	pool.sessions[srv.URL] = "cached-session"
	m := NewMCP(pool)
	manifest := &capability.Manifest{ID: "math.add", BaseURL: srv.URL, Operation: "add"}

	_, err := m.Execute(t.Context(), manifest, value.Nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
