package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackApiCallAsksTheUser(t *testing.T) {
	r := Fallback(SubIntent{Description: "look up the stock price", IntentType: IntentAPICall})
	assert.Equal(t, ResolutionBuiltIn, r.Kind)
	assert.Equal(t, "ccos.user.ask", r.CapabilityID)
}

func TestFallbackCompositeNeedsReferral(t *testing.T) {
	r := Fallback(SubIntent{Description: "plan the whole trip", IntentType: IntentComposite})
	assert.Equal(t, ResolutionNeedsReferral, r.Kind)
	assert.Equal(t, "decompose", r.SuggestedAction)
}

func TestFallbackOutputEmitsMessage(t *testing.T) {
	r := Fallback(SubIntent{Description: "show the total", IntentType: IntentOutput})
	assert.Equal(t, ResolutionBuiltIn, r.Kind)
	assert.Equal(t, "ccos.output.emit", r.CapabilityID)
}
