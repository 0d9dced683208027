package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagingAreaWritesOnePLFilePerOperation(t *testing.T) {
	written := map[string][]byte{}
	staging := NewStagingArea("/var/ccos", func(path string, contents []byte) error {
		written[path] = contents
		return nil
	})

	introspection := &IntrospectionResult{
		Kind: IntrospectMCP,
		Operations: []Operation{
			{ID: "current", Description: "get current weather"},
			{ID: "forecast", Description: "get forecast"},
		},
	}
	staged, err := staging.Stage(context.Background(), "weather-mcp", introspection)
	require.NoError(t, err)
	require.Len(t, staged, 2)
	assert.Contains(t, written, "/var/ccos/pending/weather-mcp/current.pl")
	assert.Contains(t, written, "/var/ccos/pending/weather-mcp/forecast.pl")
	assert.Contains(t, string(written["/var/ccos/pending/weather-mcp/current.pl"]), "weather-mcp.current")
}

func TestStagingAreaRequiresWriteSink(t *testing.T) {
	staging := NewStagingArea("/var/ccos", nil)
	_, err := staging.Stage(context.Background(), "s", &IntrospectionResult{})
	require.Error(t, err)
}

func TestSanitizeReplacesUnsafeCharacters(t *testing.T) {
	assert.Equal(t, "get_current", sanitize("get current"))
	assert.Equal(t, "a-b_c", sanitize("a-b/c"))
}
