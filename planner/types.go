// Package planner implements the Modular Planner pipeline (spec §4.G):
// discover candidate tools, decompose a goal into an Intent Graph, resolve
// each sub-intent to a capability, synthesize fallbacks for anything left
// unresolved, and emit the resulting Plan Language body to the Plan
// Archive. Each stage is a small pluggable-strategy interface, the same
// shape as the teacher's context-builder strategies
// (processor/context-builder/strategies) — a Build/Decompose/Resolve
// method taking a request and returning a typed result, so alternate
// strategies (template, LLM, hybrid) can be swapped in without touching
// the pipeline.
package planner

import "github.com/mandubian/ccos-sub008/value"

// IntentType classifies a decomposed sub-intent (spec §4.G step 2).
type IntentType string

const (
	IntentUserInput     IntentType = "UserInput"
	IntentAPICall       IntentType = "ApiCall"
	IntentDataTransform IntentType = "DataTransform"
	IntentOutput        IntentType = "Output"
	IntentComposite     IntentType = "Composite"
)

// SubIntent is one entry of a Decompose result: an ordered step with
// dependencies expressed as indices into the same slice (spec §4.G step 2).
type SubIntent struct {
	Description     string
	IntentType      IntentType
	Dependencies    []int
	DomainHint      string
	ExtractedParams map[string]value.Value
}

// DecomposeResult is decompose(goal, tools?)'s output (spec §4.G step 2).
type DecomposeResult struct {
	SubIntents []SubIntent
	Confidence float64
}

// ToolDescriptor is one entry of a discovery/marketplace catalogue that
// discover_tools ranks and decompose/resolve consult (spec §4.G step 1).
type ToolDescriptor struct {
	ID          string
	Description string
	ActionClass ActionClass
	DomainHints []string
}

// ActionClass buckets a tool's verb for discover_tools' ranking rule:
// Search/List/Get outrank plain CRUD, which outranks a data-transform
// affinity tool (spec §4.G step 1).
type ActionClass int

const (
	ActionClassTransform ActionClass = iota
	ActionClassCRUD
	ActionClassQuery // Search/List/Get
)

// DiscoverResult is discover_tools(goal)'s output (spec §4.G step 1).
type DiscoverResult struct {
	Tools       []ToolDescriptor
	DomainHints []string
}

// ResolutionKind tags which variant of ResolvedCapability is populated
// (spec §4.G step 4: "Local{id,args,confidence} | BuiltIn{id,args} |
// NeedsReferral{reason,suggested_action}").
type ResolutionKind string

const (
	ResolutionLocal         ResolutionKind = "Local"
	ResolutionBuiltIn       ResolutionKind = "BuiltIn"
	ResolutionNeedsReferral ResolutionKind = "NeedsReferral"
)

// ResolvedCapability is resolve(sub_intent)'s output: exactly one of the
// three shapes the spec names, selected by Kind.
type ResolvedCapability struct {
	Kind ResolutionKind

	// Local / BuiltIn.
	CapabilityID string
	Args         value.Value
	Confidence   float64

	// NeedsReferral.
	Reason          string
	SuggestedAction string
}

func Local(id string, args value.Value, confidence float64) ResolvedCapability {
	return ResolvedCapability{Kind: ResolutionLocal, CapabilityID: id, Args: args, Confidence: confidence}
}

func BuiltIn(id string, args value.Value) ResolvedCapability {
	return ResolvedCapability{Kind: ResolutionBuiltIn, CapabilityID: id, Args: args, Confidence: 1}
}

func NeedsReferral(reason, suggestedAction string) ResolvedCapability {
	return ResolvedCapability{Kind: ResolutionNeedsReferral, Reason: reason, SuggestedAction: suggestedAction}
}

func (r ResolvedCapability) Resolved() bool {
	return r.Kind == ResolutionLocal || r.Kind == ResolutionBuiltIn
}
