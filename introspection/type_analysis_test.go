package introspection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/planner"
	"github.com/mandubian/ccos-sub008/value"
)

func TestTypeAnalysisReportsMissingAndUntypedCapabilities(t *testing.T) {
	mp := capability.NewMarketplace(nil, false)
	require.NoError(t, mp.Register(&capability.Manifest{
		ID: "weather.current", InputSchema: value.Any(), OutputSchema: value.Prim(value.TypeString),
	}))

	analysis := NewTypeAnalysis(mp, planner.NewMemPlanArchive())
	out, err := analysis.Call(context.Background(), value.Map(
		value.Entry(value.KeywordKey("plan_rtfs"), value.String(`(do (call :weather.current {}) (call :weather.forecast {}))`)),
	))
	require.NoError(t, err)

	missing, _ := out.MapGet(value.KeywordKey("missing-capabilities"))
	missingItems, _ := missing.Items()
	require.Len(t, missingItems, 1)
	id, _ := missingItems[0].Str()
	assert.Equal(t, "weather.forecast", id)

	untyped, _ := out.MapGet(value.KeywordKey("untyped-capabilities"))
	untypedItems, _ := untyped.Items()
	require.Len(t, untypedItems, 1)
	uid, _ := untypedItems[0].Str()
	assert.Equal(t, "weather.current", uid) // InputSchema is :any
}

func TestTypeAnalysisUsesPlanIDWhenNoRTFSGiven(t *testing.T) {
	archive := planner.NewMemPlanArchive()
	body := `(call :weather.current {})`
	require.NoError(t, archive.Store(context.Background(), &planner.Plan{
		ID: "plan-4", IntentID: "intent-1", Body: body, ContentHash: planner.HashPlanBody(body),
	}))
	mp := capability.NewMarketplace(nil, false)

	analysis := NewTypeAnalysis(mp, archive)
	out, err := analysis.Call(context.Background(), value.Map(value.Entry(value.KeywordKey("plan_id"), value.String("plan-4"))))
	require.NoError(t, err)
	ids, _ := out.MapGet(value.KeywordKey("capability-ids"))
	items, _ := ids.Items()
	require.Len(t, items, 1)
}

func TestTypeAnalysisRequiresPlanIDOrRTFS(t *testing.T) {
	analysis := NewTypeAnalysis(capability.NewMarketplace(nil, false), planner.NewMemPlanArchive())
	_, err := analysis.Call(context.Background(), value.Map())
	require.Error(t, err)
}

func TestTypeAnalysisSuggestsOutputTypeFromLastCall(t *testing.T) {
	mp := capability.NewMarketplace(nil, false)
	require.NoError(t, mp.Register(&capability.Manifest{
		ID: "weather.current", InputSchema: value.Prim(value.TypeMap), OutputSchema: value.Prim(value.TypeString),
	}))
	analysis := NewTypeAnalysis(mp, planner.NewMemPlanArchive())
	out, err := analysis.Call(context.Background(), value.Map(
		value.Entry(value.KeywordKey("plan_rtfs"), value.String(`(call :weather.current {})`)),
	))
	require.NoError(t, err)
	suggested, _ := out.MapGet(value.KeywordKey("suggested-output-type"))
	s, _ := suggested.Str()
	assert.NotEqual(t, ":any", s)
}
