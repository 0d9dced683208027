package introspection

import (
	"context"

	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/value"
)

// CausalChainQuery answers introspect.causal_chain (spec §4.J): a filtered
// query on the ledger, returning action summaries with metadata and result.
type CausalChainQuery struct {
	Chain *causalchain.Chain
}

func NewCausalChainQuery(chain *causalchain.Chain) *CausalChainQuery {
	return &CausalChainQuery{Chain: chain}
}

func (q *CausalChainQuery) Call(_ context.Context, inputs value.Value) (value.Value, error) {
	intentID, _ := strInput(inputs, "intent_id")
	planID, _ := strInput(inputs, "plan_id")
	capabilityID, _ := strInput(inputs, "capability_id")
	sessionID, _ := strInput(inputs, "session_id")
	actionType, _ := strInput(inputs, "type")
	limit, _ := intInput(inputs, "limit")

	actions := q.Chain.QueryActions(causalchain.Filter{
		IntentID:     intentID,
		PlanID:       planID,
		CapabilityID: capabilityID,
		SessionID:    sessionID,
		Type:         causalchain.ActionType(actionType),
		Limit:        int(limit),
	})

	out := make([]value.Value, len(actions))
	for i, a := range actions {
		out[i] = value.Map(
			value.Entry(value.KeywordKey("id"), value.String(a.ID)),
			value.Entry(value.KeywordKey("type"), value.String(string(a.Type))),
			value.Entry(value.KeywordKey("plan-id"), value.String(a.PlanID)),
			value.Entry(value.KeywordKey("intent-id"), value.String(a.IntentID)),
			value.Entry(value.KeywordKey("session-id"), value.String(a.SessionID)),
			value.Entry(value.KeywordKey("function"), value.String(a.FunctionName)),
			value.Entry(value.KeywordKey("timestamp"), value.Timestamp(a.Timestamp)),
			value.Entry(value.KeywordKey("action-hash"), value.String(a.ActionHash)),
			value.Entry(value.KeywordKey("chain-hash"), value.String(a.ChainHash)),
			value.Entry(value.KeywordKey("data"), a.Data),
		)
	}
	return value.Map(value.Entry(value.KeywordKey("actions"), value.VectorOf(out))), nil
}
