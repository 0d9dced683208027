package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/pl"
	"github.com/mandubian/ccos-sub008/value"
)

// Host implements pl.Host for one session's plan execution: every `call`
// the interpreter makes is dispatched to the Marketplace and recorded on
// the Causal Chain with the session/plan/intent linkage fixed at
// construction (spec §6 "Host trait seen by the interpreter").
//
// The interpreter's own `call` evaluation (pl/interpreter.go evalCall)
// invokes CallCapability with a bare ActionContext{} and context.Background
// — it threads neither ctx nor per-step identity through Eval. Host is
// therefore the one place that identity lives: it is built once per plan
// run holding SessionID/PlanID/IntentID, and supplies them itself rather
// than trusting whatever (possibly empty) ActionContext arrives.
type Host struct {
	Marketplace *capability.Marketplace
	Chain       *causalchain.Chain

	SessionID string
	PlanID    string
	IntentID  string

	// parentAction is the id of the most recently appended action under
	// this plan, used as ParentActionID for the next one so the chain
	// reads as a linear trace of this session's execution (spec §8
	// invariant 2: a child's timestamp never precedes its parent's).
	parentAction string

	mu      sync.Mutex
	ctxVals map[string]value.Value
	cancel  int32
}

// NewHost builds a Host for one plan run. rootAction, if non-empty, seeds
// ParentActionID for the first CapabilityCall (typically the
// PlanStepStarted or IntentCreated action already on the chain for this
// plan).
func NewHost(mp *capability.Marketplace, chain *causalchain.Chain, sessionID, planID, intentID, rootAction string) *Host {
	return &Host{
		Marketplace:  mp,
		Chain:        chain,
		SessionID:    sessionID,
		PlanID:       planID,
		IntentID:     intentID,
		parentAction: rootAction,
		ctxVals:      make(map[string]value.Value),
	}
}

// CallCapability dispatches id through the Marketplace and appends a
// CapabilityCall/CapabilityResult pair to the Causal Chain around it (spec
// §5 ordering guarantees (a)-(c)), bypassing capability.Observer — Observer
// carries only (id, inputs)/(id, result, err, durationMS), with no
// plan/intent/session/parent linkage, so it cannot produce a correctly
// linked ledger entry on its own.
func (h *Host) CallCapability(ctx context.Context, id string, inputs value.Value, actionCtx pl.ActionContext) (value.Value, error) {
	stepName := actionCtx.StepName
	if stepName == "" {
		stepName = id
	}

	callAction := causalchain.NewAction(causalchain.ActionCapabilityCall, capabilityCallData(inputs)).
		WithPlan(h.PlanID).WithIntent(h.IntentID).WithSession(h.SessionID).WithFunction(stepName)
	if parent := h.currentParent(); parent != "" {
		callAction = callAction.WithParent(parent)
	}
	if err := h.appendAndAdvance(ctx, callAction); err != nil {
		return value.Nil, err
	}

	start := time.Now()
	result, callErr := h.Marketplace.Execute(ctx, id, inputs)
	duration := time.Since(start).Milliseconds()

	resultAction := causalchain.NewAction(causalchain.ActionCapabilityResult, capabilityResultData(result, callErr, duration)).
		WithPlan(h.PlanID).WithIntent(h.IntentID).WithSession(h.SessionID).WithFunction(stepName).
		WithParent(callAction.ID)
	if err := h.appendAndAdvance(ctx, resultAction); err != nil {
		// The capability's own error, if any, takes priority: the chain
		// append failure is ledger infrastructure trouble, not a reason to
		// mask what the capability itself returned.
		if callErr != nil {
			return value.Nil, callErr
		}
		return value.Nil, err
	}

	return result, callErr
}

func (h *Host) appendAndAdvance(ctx context.Context, a *causalchain.Action) error {
	if h.Chain == nil {
		return nil
	}
	if err := h.Chain.Append(ctx, a); err != nil {
		return err
	}
	h.mu.Lock()
	h.parentAction = a.ID
	h.mu.Unlock()
	return nil
}

func (h *Host) currentParent() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.parentAction
}

func capabilityCallData(inputs value.Value) value.Value {
	return value.Map(value.Entry(value.KeywordKey("inputs"), inputs))
}

func capabilityResultData(result value.Value, err error, durationMS int64) value.Value {
	entries := []value.MapEntry{
		value.Entry(value.KeywordKey("success"), value.Bool(err == nil)),
		value.Entry(value.KeywordKey("duration_ms"), value.Int(durationMS)),
	}
	if err != nil {
		entries = append(entries, value.Entry(value.KeywordKey("error"), value.String(err.Error())))
	} else {
		entries = append(entries, value.Entry(value.KeywordKey("result"), result))
	}
	return value.Map(entries...)
}

// GetContext/SetContext back the Host-shared mutable context `get`/`set!`
// read and write (spec §4.B: CCOS reserves those forms for this shared
// store rather than lexical rebinding).
func (h *Host) GetContext(key string) (value.Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.ctxVals[key]
	return v, ok
}

func (h *Host) SetContext(key string, v value.Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctxVals[key] = v
}

// Cancel flags this Host's cooperative cancellation flag; the interpreter
// checks Cancelled() at the top of every Eval and raises KindCancelled at
// the next suspension point (spec §5 "Cancellation").
func (h *Host) Cancel() { atomic.StoreInt32(&h.cancel, 1) }

func (h *Host) Cancelled() bool { return atomic.LoadInt32(&h.cancel) != 0 }
