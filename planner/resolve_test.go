package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverPrefersBuiltinOverCatalogue(t *testing.T) {
	r := NewResolver(NewBuiltinResolveStrategy(), NewCatalogueResolveStrategy())
	sub := SubIntent{Description: "ask the customer for a shipping address", IntentType: IntentUserInput}
	result, err := r.Resolve(context.Background(), sub, nil)
	require.NoError(t, err)
	assert.Equal(t, ResolutionBuiltIn, result.Kind)
	assert.Equal(t, "ccos.user.ask", result.CapabilityID)
}

func TestCatalogueResolveStrategyMatchesByKeywordOverlap(t *testing.T) {
	tools := []ToolDescriptor{
		{ID: "weather.current", Description: "get current weather conditions for a city", DomainHints: []string{"network"}},
		{ID: "files.delete", Description: "delete a file from disk", DomainHints: []string{"filesystem"}},
	}
	r := NewResolver(NewCatalogueResolveStrategy())
	sub := SubIntent{Description: "get the current weather for Paris", DomainHint: "network"}
	result, err := r.Resolve(context.Background(), sub, tools)
	require.NoError(t, err)
	assert.Equal(t, ResolutionLocal, result.Kind)
	assert.Equal(t, "weather.current", result.CapabilityID)
}

func TestResolverReturnsNeedsReferralWhenNothingMatches(t *testing.T) {
	r := NewResolver(NewCatalogueResolveStrategy())
	sub := SubIntent{Description: "launch a satellite"}
	result, err := r.Resolve(context.Background(), sub, nil)
	require.NoError(t, err)
	assert.Equal(t, ResolutionNeedsReferral, result.Kind)
}
