package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/value"
)

func TestSubstitutePathParams(t *testing.T) {
	path, remaining, err := substitutePathParams("/users/{id}/posts", value.Map(
		value.Entry(value.KeywordKey("id"), value.Int(7)),
		value.Entry(value.KeywordKey("limit"), value.Int(10)),
	))
	require.NoError(t, err)
	assert.Equal(t, "/users/7/posts", path)
	assert.Equal(t, map[string]string{"limit": "10"}, remaining)
}

func TestSubstitutePathParamsMissingParamErrors(t *testing.T) {
	_, _, err := substitutePathParams("/users/{id}", value.Map())
	assert.Error(t, err)
}

func TestOpenAPIExecuteBuildsRequestAndParsesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/7", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("name"))
		assert.Equal(t, "tok123", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	manifest := &capability.Manifest{
		ID:      "users.get",
		BaseURL: srv.URL,
		OpenAPI: &capability.OpenAPIOperation{
			Method:     http.MethodGet,
			Path:       "/users/{id}",
			AuthParam:  "X-Api-Key",
			AuthIn:     capability.OpenAPIAuthHeader,
			AuthEnvVar: "UNUSED",
		},
	}
	inputs := value.Map(
		value.Entry(value.KeywordKey("id"), value.Int(7)),
		value.Entry(value.KeywordKey("name"), value.String("alice")),
		value.Entry(value.KeywordKey("X-Api-Key"), value.String("tok123")),
	)

	o := NewOpenAPI()
	v, err := o.Execute(t.Context(), manifest, inputs)
	require.NoError(t, err)

	status, _ := v.MapGet(value.KeywordKey("status"))
	si, _ := status.Int()
	assert.Equal(t, int64(200), si)

	body, _ := v.MapGet(value.KeywordKey("body"))
	ok, _ := body.MapGet(value.KeywordKey("ok"))
	b, _ := ok.Bool()
	assert.True(t, b)
}
