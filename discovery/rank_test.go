package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticRankerOrdersByScoreDescending(t *testing.T) {
	candidates := []RegistrySearchResult{
		{ID: "files.delete", Description: "delete a file from disk"},
		{ID: "weather.current", Description: "get current weather conditions for a city"},
	}
	ranked, err := SemanticRanker{}.Rank(context.Background(), "get the current weather for Paris", candidates)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "weather.current", ranked[0].ID)
	assert.GreaterOrEqual(t, ranked[0].MatchScore, ranked[1].MatchScore)
}

func TestApplyThresholdDropsLowScoring(t *testing.T) {
	candidates := []RegistrySearchResult{
		{ID: "a", MatchScore: 0.9},
		{ID: "b", MatchScore: 0.1},
	}
	out := ApplyThreshold(candidates, 0.3)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestDedupeKeepsFirstOccurrencePerEndpoint(t *testing.T) {
	candidates := []RegistrySearchResult{
		{ID: "a", Endpoint: "https://x"},
		{ID: "b", Endpoint: "https://x"},
		{ID: "c", Endpoint: "https://y"},
	}
	out := Dedupe(candidates)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
}

func TestLimitTruncatesToMaxRanked(t *testing.T) {
	candidates := []RegistrySearchResult{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out := Limit(candidates, 2)
	assert.Len(t, out, 2)
}

func TestLimitNoopWhenUnderMax(t *testing.T) {
	candidates := []RegistrySearchResult{{ID: "a"}}
	out := Limit(candidates, 5)
	assert.Len(t, out, 1)
}

func TestSuggestAsWebDocSetsFixedScoreAndCategory(t *testing.T) {
	r := SuggestAsWebDoc("x", "X", "desc", "https://x")
	assert.Equal(t, 0.7, r.MatchScore)
	assert.Equal(t, CategoryWebDoc, r.Category)
}
