package introspection

import (
	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/planner"
	"github.com/mandubian/ccos-sub008/value"
)

// Register installs the four introspection capabilities (spec §4.J) onto
// registry under the reserved ccos.introspect.* namespace, and their
// manifests onto mp via RegisterBuiltin. Call once at startup, after
// RegisterExecutor(ProviderLocal, registry.Executor()).
func Register(mp *capability.Marketplace, registry *capability.LocalRegistry, chain *causalchain.Chain, archive planner.PlanArchive) error {
	graph := NewCapabilityGraph(chain, archive)
	trace := NewPlanTrace(chain)
	types := NewTypeAnalysis(mp, archive)
	query := NewCausalChainQuery(chain)

	registry.Register("ccos.introspect.capability_graph", graph.Call)
	registry.Register("ccos.introspect.plan_trace", trace.Call)
	registry.Register("ccos.introspect.type_analysis", types.Call)
	registry.Register("ccos.introspect.causal_chain", query.Call)

	manifests := []*capability.Manifest{
		{
			ID:           "ccos.introspect.capability_graph",
			Description:  "capability call graph, observed from the Causal Chain or statically parsed from a plan body",
			ProviderType: capability.ProviderLocal,
			InputSchema:  value.Any(),
			OutputSchema: value.Any(),
		},
		{
			ID:           "ccos.introspect.plan_trace",
			Description:  "chronological execution trace for a plan",
			ProviderType: capability.ProviderLocal,
			InputSchema:  value.Any(),
			OutputSchema: value.Any(),
		},
		{
			ID:           "ccos.introspect.type_analysis",
			Description:  "static analysis of a plan's called capabilities and their schemas",
			ProviderType: capability.ProviderLocal,
			InputSchema:  value.Any(),
			OutputSchema: value.Any(),
		},
		{
			ID:           "ccos.introspect.causal_chain",
			Description:  "filtered query over the Causal Chain ledger",
			ProviderType: capability.ProviderLocal,
			InputSchema:  value.Any(),
			OutputSchema: value.Any(),
		},
	}
	for _, m := range manifests {
		if err := mp.RegisterBuiltin(m); err != nil {
			return err
		}
	}
	return nil
}
