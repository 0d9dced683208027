package planner

import "github.com/mandubian/ccos-sub008/value"

// Fallback synthesises a ResolvedCapability for a sub-intent that every
// ResolveStrategy passed on (spec §4.G step 5). ApiCall and UserInput
// become ccos.user.ask and Output becomes ccos.output.emit; DataTransform,
// Composite and any unrecognised type return NeedsReferral (to synthesis,
// decompose and discovery respectively).
func Fallback(sub SubIntent) ResolvedCapability {
	switch sub.IntentType {
	case IntentAPICall:
		prompt := "I couldn't find a capability for: " + sub.Description + ". How would you like to proceed?"
		args := value.Map(value.Entry(value.KeywordKey("prompt"), value.String(prompt)))
		return BuiltIn("ccos.user.ask", args)
	case IntentUserInput:
		args := value.Map(value.Entry(value.KeywordKey("prompt"), value.String(sub.Description)))
		return BuiltIn("ccos.user.ask", args)
	case IntentDataTransform:
		return NeedsReferral("no data-transform capability available for: "+sub.Description, "synthesis")
	case IntentOutput:
		args := value.Map(value.Entry(value.KeywordKey("message"), value.String(sub.Description)))
		return BuiltIn("ccos.output.emit", args)
	case IntentComposite:
		return NeedsReferral("composite sub-intent requires further decomposition: "+sub.Description, "decompose")
	default:
		return NeedsReferral("unrecognised intent type for: "+sub.Description, "discovery")
	}
}
