// Package causalchain implements the append-only, hash-chained action
// ledger (spec §4.E): every CapabilityCall, PlanStep, and synthesis event
// is recorded as an Action whose chain_hash commits to everything before
// it, backed by an embedded NATS JetStream stream + KV index the way the
// teacher's storage package backs entities with NATS KV.
package causalchain

import (
	"time"

	"github.com/google/uuid"

	"github.com/mandubian/ccos-sub008/value"
)

// ActionType enumerates the kinds of Action appended to the chain.
type ActionType string

const (
	ActionPlanStepStarted          ActionType = "PlanStepStarted"
	ActionPlanStepCompleted        ActionType = "PlanStepCompleted"
	ActionPlanStepFailed           ActionType = "PlanStepFailed"
	ActionCapabilityCall           ActionType = "CapabilityCall"
	ActionCapabilityResult         ActionType = "CapabilityResult"
	ActionIntentCreated            ActionType = "IntentCreated"
	ActionIntentStatusChanged      ActionType = "IntentStatusChanged"
	ActionEdgeCreated              ActionType = "EdgeCreated"
	ActionDecompositionStarted     ActionType = "DecompositionStarted"
	ActionDecompositionCompleted   ActionType = "DecompositionCompleted"
	ActionResolutionStarted        ActionType = "ResolutionStarted"
	ActionResolutionCompleted      ActionType = "ResolutionCompleted"
	ActionResolutionFailed         ActionType = "ResolutionFailed"
	ActionDiscoverySearchCompleted ActionType = "DiscoverySearchCompleted"
	ActionCapabilitySynthesisStarted   ActionType = "CapabilitySynthesisStarted"
	ActionCapabilitySynthesisCompleted ActionType = "CapabilitySynthesisCompleted"
)

// Action is one entry in the causal chain (spec §4.E, §6 "Causal Chain
// SQLite layout" — CCOS persists the same logical row shape in NATS
// JetStream rather than SQLite; see causalchain/store.go).
type Action struct {
	ID             string
	Type           ActionType
	PlanID         string
	IntentID       string
	SessionID      string
	ParentActionID string
	FunctionName   string
	Timestamp      time.Time
	Data           value.Value

	// ActionHash and ChainHash are populated by Append; a freshly built
	// Action has both empty until it's appended to a Chain.
	ActionHash string
	ChainHash  string
}

// NewAction builds an Action with a fresh ID and the current time, ready to
// be appended. Chain.Append keeps whatever Timestamp the Action carries, so
// tests can overwrite it before appending to pin deterministic times.
func NewAction(t ActionType, data value.Value) *Action {
	return &Action{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (a *Action) WithPlan(planID string) *Action       { a.PlanID = planID; return a }
func (a *Action) WithIntent(intentID string) *Action   { a.IntentID = intentID; return a }
func (a *Action) WithSession(sessionID string) *Action { a.SessionID = sessionID; return a }
func (a *Action) WithParent(parentID string) *Action   { a.ParentActionID = parentID; return a }
func (a *Action) WithFunction(name string) *Action     { a.FunctionName = name; return a }
