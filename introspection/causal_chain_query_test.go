package introspection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/value"
)

func TestCausalChainQueryFiltersByIntentAndType(t *testing.T) {
	chain := causalchain.NewChain(causalchain.NewMemStore())
	require.NoError(t, chain.Append(context.Background(), causalchain.NewAction(causalchain.ActionCapabilityCall, value.Nil).WithIntent("intent-1").WithFunction("weather.current")))
	require.NoError(t, chain.Append(context.Background(), causalchain.NewAction(causalchain.ActionIntentCreated, value.Nil).WithIntent("intent-1")))
	require.NoError(t, chain.Append(context.Background(), causalchain.NewAction(causalchain.ActionCapabilityCall, value.Nil).WithIntent("intent-2").WithFunction("weather.forecast")))

	query := NewCausalChainQuery(chain)
	out, err := query.Call(context.Background(), value.Map(
		value.Entry(value.KeywordKey("intent_id"), value.String("intent-1")),
		value.Entry(value.KeywordKey("type"), value.String(string(causalchain.ActionCapabilityCall))),
	))
	require.NoError(t, err)

	actions, _ := out.MapGet(value.KeywordKey("actions"))
	items, _ := actions.Items()
	require.Len(t, items, 1)
	fn, _ := items[0].MapGet(value.KeywordKey("function"))
	s, _ := fn.Str()
	assert.Equal(t, "weather.current", s)
}

func TestCausalChainQueryRespectsLimit(t *testing.T) {
	chain := causalchain.NewChain(causalchain.NewMemStore())
	for i := 0; i < 3; i++ {
		require.NoError(t, chain.Append(context.Background(), causalchain.NewAction(causalchain.ActionCapabilityCall, value.Nil).WithIntent("intent-1")))
	}
	query := NewCausalChainQuery(chain)
	out, err := query.Call(context.Background(), value.Map(
		value.Entry(value.KeywordKey("intent_id"), value.String("intent-1")),
		value.Entry(value.KeywordKey("limit"), value.Int(2)),
	))
	require.NoError(t, err)
	actions, _ := out.MapGet(value.KeywordKey("actions"))
	items, _ := actions.Items()
	assert.Len(t, items, 2)
}
