package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemApprovalQueueAddAndGet(t *testing.T) {
	q := NewMemApprovalQueue()
	id, err := q.AddServerDiscovery(context.Background(), "mcp_registry",
		RegistrySearchResult{ID: "weather"}, []string{"weather"},
		RiskAssessment{Level: RiskLow}, "", 24)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	req, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, "mcp_registry", req.Source)
	assert.False(t, req.Decided)
}

func TestMemApprovalQueueDecide(t *testing.T) {
	q := NewMemApprovalQueue()
	id, _ := q.AddServerDiscovery(context.Background(), "mcp_registry", RegistrySearchResult{ID: "x"}, nil, RiskAssessment{}, "", 1)

	ok := q.Decide(id, true)
	assert.True(t, ok)
	req, _ := q.Get(id)
	assert.True(t, req.Decided)
	assert.True(t, req.Approved)
}

func TestMemApprovalQueueDecideUnknownID(t *testing.T) {
	q := NewMemApprovalQueue()
	assert.False(t, q.Decide("nope", true))
}

func TestAssessRiskFlagsDestructiveOperationsAsCritical(t *testing.T) {
	introspection := &IntrospectionResult{Operations: []Operation{{ID: "delete_all", Description: "delete all records"}}}
	risk := AssessRisk(RegistrySearchResult{Endpoint: "https://example.com"}, introspection)
	assert.Equal(t, RiskCritical, risk.Level)
}

func TestAssessRiskFlagsLocalEndpointAsHigh(t *testing.T) {
	risk := AssessRisk(RegistrySearchResult{Endpoint: "http://localhost:8080"}, nil)
	assert.Equal(t, RiskHigh, risk.Level)
}

func TestAssessRiskDefaultsToLow(t *testing.T) {
	risk := AssessRisk(RegistrySearchResult{Endpoint: "https://example.com"}, &IntrospectionResult{})
	assert.Equal(t, RiskLow, risk.Level)
	assert.NotEmpty(t, risk.Reasons)
}
