package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/intentgraph"
)

func TestPipelineRunResolvesAndArchivesPlan(t *testing.T) {
	graph := intentgraph.NewGraph()
	chain := causalchain.NewChain(causalchain.NewMemStore())
	p := NewPipeline(graph, chain)
	p.Catalogue = ToolCatalogueFunc(func() []ToolDescriptor {
		return []ToolDescriptor{
			{ID: "weather.current", Description: "get current weather conditions for a city", DomainHints: []string{"network"}, ActionClass: ActionClassQuery},
		}
	})

	result, err := p.Run(context.Background(), "get the current weather for Paris")
	require.NoError(t, err)

	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, ResolutionLocal, result.Resolutions[0].Kind)
	assert.Equal(t, "weather.current", result.Resolutions[0].CapabilityID)

	require.NotNil(t, result.Plan)
	assert.False(t, result.Plan.HasPendingSynthesis)
	assert.Contains(t, result.Plan.Body, ":weather.current")
	assert.Equal(t, HashPlanBody(result.Plan.Body), result.Plan.ContentHash)

	root, ok := graph.GetIntent(result.RootIntentID)
	require.True(t, ok)
	assert.Len(t, root.ChildIntents, 1)
	assert.Greater(t, chain.Len(), 0)
	assert.NoError(t, chain.VerifyIntegrity())
}

func TestPipelineRunFallsBackWhenNothingResolves(t *testing.T) {
	graph := intentgraph.NewGraph()
	chain := causalchain.NewChain(causalchain.NewMemStore())
	p := NewPipeline(graph, chain)

	result, err := p.Run(context.Background(), "convert the telemetry data into a custom format")
	require.NoError(t, err)

	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, ResolutionNeedsReferral, result.Resolutions[0].Kind)
	assert.True(t, result.Plan.HasPendingSynthesis)
	assert.True(t, strings.Contains(result.Plan.Body, "ccos.synthesis.pending"))
}

func TestPipelineRunMultiStepChainsDependentSteps(t *testing.T) {
	graph := intentgraph.NewGraph()
	chain := causalchain.NewChain(causalchain.NewMemStore())
	p := NewPipeline(graph, chain)
	p.Catalogue = ToolCatalogueFunc(func() []ToolDescriptor {
		return []ToolDescriptor{
			{ID: "reports.fetch", Description: "fetch the report", ActionClass: ActionClassQuery},
		}
	})

	result, err := p.Run(context.Background(), "fetch the report and then show the result")
	require.NoError(t, err)
	require.Len(t, result.Resolutions, 2)

	root, ok := graph.GetIntent(result.RootIntentID)
	require.True(t, ok)
	require.Len(t, root.ChildIntents, 2)

	deps := graph.GetDependencies(root.ChildIntents[1])
	assert.Equal(t, []string{root.ChildIntents[0]}, deps)
}
