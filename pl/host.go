package pl

import (
	"context"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// ActionContext threads the causal-chain identity of the currently executing
// plan step through `call` so the Host can record CapabilityCall/Result
// actions with the right parent/intent/plan/session linkage (spec §3
// Action, §5 ordering guarantees).
type ActionContext struct {
	SessionID      string
	PlanID         string
	IntentID       string
	ParentActionID string
	StepName       string
}

// Host is the trait the interpreter calls out to for everything that
// crosses the PL/Marketplace boundary (spec §6 "Host trait seen by the
// interpreter"). Implemented by the runtime package using the capability
// Marketplace and Causal Chain.
type Host interface {
	CallCapability(ctx context.Context, id string, inputs value.Value, actionCtx ActionContext) (value.Value, error)
	GetContext(key string) (value.Value, bool)
	SetContext(key string, v value.Value)
	Cancelled() bool
}

// NoopHost is a minimal Host usable in tests and for evaluating PL source
// that only uses pure forms (no `call`).
type NoopHost struct {
	ctx map[string]value.Value
}

func NewNoopHost() *NoopHost { return &NoopHost{ctx: make(map[string]value.Value)} }

func (h *NoopHost) CallCapability(_ context.Context, id string, _ value.Value, _ ActionContext) (value.Value, error) {
	return value.Nil, ccoserr.New(ccoserr.KindUnknownCapability, "no host wired: %s", id)
}

func (h *NoopHost) GetContext(key string) (value.Value, bool) {
	v, ok := h.ctx[key]
	return v, ok
}

func (h *NoopHost) SetContext(key string, v value.Value) { h.ctx[key] = v }

func (h *NoopHost) Cancelled() bool { return false }
