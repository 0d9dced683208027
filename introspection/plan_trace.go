package introspection

import (
	"context"
	"sort"
	"time"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/value"
)

// TraceStep is one chronological entry in a plan's execution trace.
type TraceStep struct {
	Type       causalchain.ActionType
	Function   string
	Timestamp  time.Time
	DurationMS int64
	Args       value.Value
	Result     value.Value
}

// PlanTrace answers introspect.plan_trace (spec §4.J): every Causal Chain
// action recorded under a plan, in timestamp order, with durations derived
// by pairing each Started/Call action with its matching Completed/Failed/
// Result sibling (same ParentActionID and FunctionName).
type PlanTrace struct {
	Chain *causalchain.Chain
}

func NewPlanTrace(chain *causalchain.Chain) *PlanTrace {
	return &PlanTrace{Chain: chain}
}

func (t *PlanTrace) Call(_ context.Context, inputs value.Value) (value.Value, error) {
	planID, ok := strInput(inputs, "plan_id")
	if !ok {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "plan_trace requires plan_id")
	}
	limit, _ := intInput(inputs, "limit")
	includeArgs := boolInput(inputs, "include_args")
	includeResult := boolInput(inputs, "include_result")

	actions := t.Chain.GetActionsByPlan(planID)
	sorted := append([]*causalchain.Action(nil), actions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	steps := pairDurations(sorted)
	if int(limit) > 0 && len(steps) > int(limit) {
		steps = steps[:limit]
	}

	out := make([]value.Value, len(steps))
	for i, s := range steps {
		entries := []value.MapEntry{
			value.Entry(value.KeywordKey("type"), value.String(string(s.Type))),
			value.Entry(value.KeywordKey("function"), value.String(s.Function)),
			value.Entry(value.KeywordKey("timestamp"), value.Timestamp(s.Timestamp)),
			value.Entry(value.KeywordKey("duration-ms"), value.Int(s.DurationMS)),
		}
		if includeArgs && !s.Args.IsNil() {
			entries = append(entries, value.Entry(value.KeywordKey("args"), s.Args))
		}
		if includeResult && !s.Result.IsNil() {
			entries = append(entries, value.Entry(value.KeywordKey("result"), s.Result))
		}
		out[i] = value.Map(entries...)
	}
	return value.Map(value.Entry(value.KeywordKey("steps"), value.VectorOf(out))), nil
}

// isStart/isEnd classify an ActionType as opening or closing a span so
// pairDurations can match Started↔Completed/Failed and Call↔Result.
func isStart(t causalchain.ActionType) bool {
	switch t {
	case causalchain.ActionPlanStepStarted, causalchain.ActionCapabilityCall,
		causalchain.ActionDecompositionStarted, causalchain.ActionResolutionStarted,
		causalchain.ActionCapabilitySynthesisStarted:
		return true
	}
	return false
}

func isEnd(t causalchain.ActionType) bool {
	switch t {
	case causalchain.ActionPlanStepCompleted, causalchain.ActionPlanStepFailed, causalchain.ActionCapabilityResult,
		causalchain.ActionDecompositionCompleted, causalchain.ActionResolutionCompleted, causalchain.ActionResolutionFailed,
		causalchain.ActionCapabilitySynthesisCompleted:
		return true
	}
	return false
}

func pairDurations(sorted []*causalchain.Action) []TraceStep {
	type openSpan struct {
		timestamp time.Time
		args      value.Value
	}
	open := map[string]openSpan{}
	steps := make([]TraceStep, 0, len(sorted))

	for _, a := range sorted {
		key := a.ParentActionID + "\x00" + a.FunctionName
		step := TraceStep{Type: a.Type, Function: a.FunctionName, Timestamp: a.Timestamp, Result: value.Nil, Args: value.Nil}

		switch {
		case isStart(a.Type):
			open[key] = openSpan{timestamp: a.Timestamp, args: a.Data}
			step.Args = a.Data
		case isEnd(a.Type):
			if span, ok := open[key]; ok {
				step.DurationMS = a.Timestamp.Sub(span.timestamp).Milliseconds()
				step.Args = span.args
				delete(open, key)
			}
			step.Result = a.Data
		default:
			step.Args = a.Data
		}
		steps = append(steps, step)
	}
	return steps
}
