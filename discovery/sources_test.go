package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPRegistrySourceParsesServers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"servers":[{"id":"weather","name":"Weather","description":"weather tool","endpoint":"https://weather.example","tags":["weather"]}]}`))
	}))
	defer srv.Close()

	source := NewMCPRegistrySource(srv.URL, http.DefaultClient)
	results, err := source.Search(context.Background(), "weather")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "weather", results[0].ID)
	assert.Equal(t, CategoryMCP, results[0].Category)
}

func TestLocalOverrideSourceFiltersByQuery(t *testing.T) {
	source := NewLocalOverrideSource(
		RegistrySearchResult{ID: "a", Name: "Weather Tool", Description: "forecasts"},
		RegistrySearchResult{ID: "b", Name: "File Tool", Description: "reads files"},
	)
	results, err := source.Search(context.Background(), "weather")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, CategoryLocal, results[0].Category)
}

func TestWebSearchSourceDisabledWhenFnNil(t *testing.T) {
	source := NewWebSearchSource(nil)
	results, err := source.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestMultiSourceAggregatesAndSwallowsErrors(t *testing.T) {
	failing := &failingSource{}
	local := NewLocalOverrideSource(RegistrySearchResult{ID: "a", Name: "Weather Tool", Description: "forecasts"})
	ms := NewMultiSource(failing, local)

	results := ms.Search(context.Background(), "weather")
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }
func (failingSource) Search(context.Context, string) ([]RegistrySearchResult, error) {
	return nil, assertErr{}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
