package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywordsSplitsOnDotsUnderscoresAndCamelCase(t *testing.T) {
	assert.ElementsMatch(t, []string{"weather", "current"}, extractKeywords("weather.current"))
	assert.ElementsMatch(t, []string{"get", "weather", "forecast"}, extractKeywords("getWeatherForecast"))
	assert.ElementsMatch(t, []string{"files", "list", "dir"}, extractKeywords("files_list-dir"))
}

func TestSemanticScoreRewardsKeywordAndVerbOverlap(t *testing.T) {
	candidate := RegistrySearchResult{ID: "weather.current", Description: "get current weather conditions for a city"}
	score := SemanticScore("get the current weather for Paris", candidate)
	assert.Greater(t, score, 0.5)
}

func TestSemanticScorePenalizesDomainMismatch(t *testing.T) {
	weatherNeed := "get the current weather for Paris"
	sameDomain := RegistrySearchResult{ID: "weather.current", Description: "get current weather conditions for a city"}
	crossDomain := RegistrySearchResult{ID: "files.delete", Description: "delete a file from disk given a path"}

	sameScore := SemanticScore(weatherNeed, sameDomain)
	crossScore := SemanticScore(weatherNeed, crossDomain)
	assert.Greater(t, sameScore, crossScore)
}

func TestSemanticScoreZeroForEmptyNeed(t *testing.T) {
	assert.Equal(t, 0.0, SemanticScore("", RegistrySearchResult{ID: "x"}))
}
