package introspection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/value"
)

func TestPlanTraceOrdersChronologicallyAndComputesDuration(t *testing.T) {
	chain := causalchain.NewChain(causalchain.NewMemStore())
	base := time.Now()

	call := causalchain.NewAction(causalchain.ActionCapabilityCall, value.String("in")).WithPlan("plan-1").WithFunction("weather.current").WithParent("root")
	call.Timestamp = base
	require.NoError(t, chain.Append(context.Background(), call))

	result := causalchain.NewAction(causalchain.ActionCapabilityResult, value.String("out")).WithPlan("plan-1").WithFunction("weather.current").WithParent("root")
	result.Timestamp = base.Add(50 * time.Millisecond)
	require.NoError(t, chain.Append(context.Background(), result))

	trace := NewPlanTrace(chain)
	out, err := trace.Call(context.Background(), value.Map(
		value.Entry(value.KeywordKey("plan_id"), value.String("plan-1")),
		value.Entry(value.KeywordKey("include_result"), value.Bool(true)),
	))
	require.NoError(t, err)

	steps, _ := out.MapGet(value.KeywordKey("steps"))
	items, _ := steps.Items()
	require.Len(t, items, 2)

	dur, _ := items[1].MapGet(value.KeywordKey("duration-ms"))
	d, _ := dur.Int()
	assert.Equal(t, int64(50), d)

	res, ok := items[1].MapGet(value.KeywordKey("result"))
	require.True(t, ok)
	s, _ := res.Str()
	assert.Equal(t, "out", s)
}

func TestPlanTraceRequiresPlanID(t *testing.T) {
	trace := NewPlanTrace(causalchain.NewChain(causalchain.NewMemStore()))
	_, err := trace.Call(context.Background(), value.Map())
	require.Error(t, err)
}

func TestPlanTraceRespectsLimit(t *testing.T) {
	chain := causalchain.NewChain(causalchain.NewMemStore())
	base := time.Now()
	for i := 0; i < 5; i++ {
		a := causalchain.NewAction(causalchain.ActionPlanStepStarted, value.Nil).WithPlan("plan-3").WithFunction("step")
		a.Timestamp = base.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, chain.Append(context.Background(), a))
	}

	trace := NewPlanTrace(chain)
	out, err := trace.Call(context.Background(), value.Map(
		value.Entry(value.KeywordKey("plan_id"), value.String("plan-3")),
		value.Entry(value.KeywordKey("limit"), value.Int(2)),
	))
	require.NoError(t, err)
	steps, _ := out.MapGet(value.KeywordKey("steps"))
	items, _ := steps.Items()
	assert.Len(t, items, 2)
}
