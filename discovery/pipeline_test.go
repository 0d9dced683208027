package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineRunRanksIntrospectsStagesAndQueues(t *testing.T) {
	local := NewLocalOverrideSource(
		RegistrySearchResult{ID: "weather.current", Name: "Weather", Description: "get current weather conditions for a city", Category: CategoryMCP, Endpoint: "mcp://weather"},
	)

	mcp := &stubIntrospector{kind: IntrospectMCP, applies: true, result: &IntrospectionResult{
		Kind:       IntrospectMCP,
		Operations: []Operation{{ID: "current", Description: "get current weather"}},
	}}

	written := map[string][]byte{}
	p := NewPipeline(NewMultiSource(local))
	p.Introspectors = []Introspector{mcp}
	p.Staging = NewStagingArea("/var/ccos", func(path string, contents []byte) error {
		written[path] = contents
		return nil
	})

	results, err := p.Run(context.Background(), "get the current weather for Paris")
	require.NoError(t, err)
	require.Len(t, results, 1)

	d := results[0]
	assert.Equal(t, "weather.current", d.Candidate.ID)
	require.NotNil(t, d.Introspection)
	assert.Len(t, d.Staged, 1)
	assert.NotEmpty(t, d.ApprovalID)
	assert.Len(t, written, 1)
}

func TestPipelineRunReturnsEmptyWhenNoCandidates(t *testing.T) {
	p := NewPipeline(NewMultiSource())
	results, err := p.Run(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPipelineRunSurvivesFailedIntrospection(t *testing.T) {
	local := NewLocalOverrideSource(RegistrySearchResult{ID: "x", Name: "X", Description: "does x", Category: CategoryNPM})
	p := NewPipeline(NewMultiSource(local))
	p.Threshold = 0 // keep the candidate whatever its semantic score

	results, err := p.Run(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Introspection)
	assert.Empty(t, results[0].ApprovalID)
}

type stubIntrospector struct {
	kind    IntrospectionKind
	applies bool
	result  *IntrospectionResult
}

func (s *stubIntrospector) Kind() IntrospectionKind { return s.kind }
func (s *stubIntrospector) Applies(RegistrySearchResult) bool { return s.applies }
func (s *stubIntrospector) Introspect(context.Context, RegistrySearchResult) (*IntrospectionResult, error) {
	return s.result, nil
}
