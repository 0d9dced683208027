package planner

import (
	"context"

	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/value"
)

// EventSink records a planner trace event to the Causal Chain (spec §4.G
// "Every step emits trace events ... for post-mortem and telemetry"). The
// pipeline is given one so tests can swap in causalchain.NewChain(nil) (no
// backing Store) or a Store-backed chain interchangeably.
type EventSink interface {
	Append(ctx context.Context, a *causalchain.Action) error
}

// emit is a small helper so pipeline.go's step methods don't each repeat
// the NewAction/WithPlan/WithIntent wiring. planID may be empty before a
// Plan exists yet (discovery/decomposition/resolution all precede step 7).
func emit(ctx context.Context, sink EventSink, t causalchain.ActionType, planID, intentID string, data value.Value) error {
	if sink == nil {
		return nil
	}
	a := causalchain.NewAction(t, data)
	if planID != "" {
		a = a.WithPlan(planID)
	}
	if intentID != "" {
		a = a.WithIntent(intentID)
	}
	return sink.Append(ctx, a)
}

func decompositionStartedData(goal string) value.Value {
	return value.Map(value.Entry(value.KeywordKey("goal"), value.String(goal)))
}

func decompositionCompletedData(r DecomposeResult) value.Value {
	return value.Map(
		value.Entry(value.KeywordKey("sub_intent_count"), value.Int(int64(len(r.SubIntents)))),
		value.Entry(value.KeywordKey("confidence"), value.Float(r.Confidence)),
	)
}

func resolutionStartedData(description string) value.Value {
	return value.Map(value.Entry(value.KeywordKey("description"), value.String(description)))
}

func resolutionCompletedData(r ResolvedCapability) value.Value {
	return value.Map(
		value.Entry(value.KeywordKey("kind"), value.String(string(r.Kind))),
		value.Entry(value.KeywordKey("capability_id"), value.String(r.CapabilityID)),
		value.Entry(value.KeywordKey("confidence"), value.Float(r.Confidence)),
	)
}

func resolutionFailedData(reason string) value.Value {
	return value.Map(value.Entry(value.KeywordKey("reason"), value.String(reason)))
}

func discoverySearchCompletedData(d DiscoverResult) value.Value {
	return value.Map(
		value.Entry(value.KeywordKey("tool_count"), value.Int(int64(len(d.Tools)))),
		value.Entry(value.KeywordKey("domain_hints"), value.Int(int64(len(d.DomainHints)))),
	)
}
