package introspection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/planner"
	"github.com/mandubian/ccos-sub008/value"
)

func appendCall(t *testing.T, chain *causalchain.Chain, planID, fn, parent string, at time.Time) *causalchain.Action {
	t.Helper()
	a := causalchain.NewAction(causalchain.ActionCapabilityCall, value.Nil).WithPlan(planID).WithFunction(fn)
	a.Timestamp = at
	if parent != "" {
		a.WithParent(parent)
	}
	require.NoError(t, chain.Append(context.Background(), a))
	return a
}

func TestCapabilityGraphObservedCountsAndEdges(t *testing.T) {
	chain := causalchain.NewChain(causalchain.NewMemStore())
	base := time.Now()
	root := appendCall(t, chain, "plan-1", "weather.current", "", base)
	appendCall(t, chain, "plan-1", "weather.forecast", root.ID, base.Add(time.Millisecond))
	appendCall(t, chain, "plan-1", "weather.current", "", base.Add(2*time.Millisecond))

	graph := NewCapabilityGraph(chain, planner.NewMemPlanArchive())
	result, err := graph.Call(context.Background(), value.Map(
		value.Entry(value.KeywordKey("mode"), value.String("observed")),
		value.Entry(value.KeywordKey("plan_id"), value.String("plan-1")),
	))
	require.NoError(t, err)

	mode, _ := result.MapGet(value.KeywordKey("mode"))
	s, _ := mode.Str()
	assert.Equal(t, "observed", s)

	nodes, _ := result.MapGet(value.KeywordKey("nodes"))
	items, _ := nodes.Items()
	require.Len(t, items, 2)
	id, _ := items[0].MapGet(value.KeywordKey("id"))
	idStr, _ := id.Str()
	assert.Equal(t, "weather.current", idStr)
	count, _ := items[0].MapGet(value.KeywordKey("count"))
	c, _ := count.Int()
	assert.Equal(t, int64(2), c)

	edges, _ := result.MapGet(value.KeywordKey("edges"))
	edgeItems, _ := edges.Items()
	require.Len(t, edgeItems, 1)
}

func TestCapabilityGraphStaticPlanCountsCallTargets(t *testing.T) {
	archive := planner.NewMemPlanArchive()
	body := `(do (call :weather.current {}) (call :weather.forecast {}) (call :weather.current {}))`
	require.NoError(t, archive.Store(context.Background(), &planner.Plan{
		ID: "plan-2", IntentID: "intent-1", Body: body, ContentHash: planner.HashPlanBody(body),
	}))

	graph := NewCapabilityGraph(causalchain.NewChain(causalchain.NewMemStore()), archive)
	result, err := graph.Call(context.Background(), value.Map(
		value.Entry(value.KeywordKey("mode"), value.String("static_plan")),
		value.Entry(value.KeywordKey("plan_id"), value.String("plan-2")),
	))
	require.NoError(t, err)

	nodes, _ := result.MapGet(value.KeywordKey("nodes"))
	items, _ := nodes.Items()
	require.Len(t, items, 2)
	id, _ := items[0].MapGet(value.KeywordKey("id"))
	idStr, _ := id.Str()
	assert.Equal(t, "weather.current", idStr)
}

func TestCapabilityGraphStaticPlanRequiresPlanID(t *testing.T) {
	graph := NewCapabilityGraph(causalchain.NewChain(causalchain.NewMemStore()), planner.NewMemPlanArchive())
	_, err := graph.Call(context.Background(), value.Map(value.Entry(value.KeywordKey("mode"), value.String("static_plan"))))
	require.Error(t, err)
}

func TestCapabilityGraphUnknownModeErrors(t *testing.T) {
	graph := NewCapabilityGraph(causalchain.NewChain(causalchain.NewMemStore()), planner.NewMemPlanArchive())
	_, err := graph.Call(context.Background(), value.Map(value.Entry(value.KeywordKey("mode"), value.String("bogus"))))
	require.Error(t, err)
}
