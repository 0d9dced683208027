package providers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

func TestA2AExecuteUnwrapsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req a2aRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "execute", req.Capability)
		json.NewEncoder(w).Encode(a2aResponse{Result: map[string]any{"greeting": "hi"}})
	}))
	defer srv.Close()

	a := NewA2A()
	manifest := &capability.Manifest{ID: "agent.greet", BaseURL: srv.URL}
	v, err := a.Execute(t.Context(), manifest, value.String("bob"))
	require.NoError(t, err)

	greeting, ok := v.MapGet(value.KeywordKey("greeting"))
	require.True(t, ok)
	s, _ := greeting.Str()
	assert.Equal(t, "hi", s)
}

func TestA2AExecuteSurfacesRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(a2aResponse{Error: "agent unavailable"})
	}))
	defer srv.Close()

	a := NewA2A()
	manifest := &capability.Manifest{ID: "agent.greet", BaseURL: srv.URL}
	_, err := a.Execute(t.Context(), manifest, value.Nil)
	require.Error(t, err)
	assert.Equal(t, ccoserr.KindProviderError, ccoserr.KindOf(err))
}

func TestA2AWebSocketAndGRPCUnimplemented(t *testing.T) {
	_, err := A2AWebSocket{}.Execute(t.Context(), &capability.Manifest{}, value.Nil)
	assert.Error(t, err)
	_, err = A2AGRPC{}.Execute(t.Context(), &capability.Manifest{}, value.Nil)
	assert.Error(t, err)
}
