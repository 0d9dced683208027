package planner

import (
	"context"
	"strings"

	"github.com/mandubian/ccos-sub008/value"
)

// ResolveStrategy attempts to resolve one sub-intent to a capability.
// handled reports whether this strategy produced an opinion at all — false
// lets Resolver fall through to the next strategy in the chain (spec
// §4.G step 4 "try strategies in order").
type ResolveStrategy interface {
	Resolve(ctx context.Context, sub SubIntent, tools []ToolDescriptor) (result ResolvedCapability, handled bool, err error)
}

// Resolver runs a configured chain of ResolveStrategy in order and returns
// the first one that handles the sub-intent.
type Resolver struct {
	Strategies []ResolveStrategy
}

func NewResolver(strategies ...ResolveStrategy) *Resolver {
	return &Resolver{Strategies: strategies}
}

// Resolve tries each strategy in order; if none handles the sub-intent it
// returns a NeedsReferral rather than an error, since an unresolved
// sub-intent is an expected outcome the pipeline routes to Create
// fallbacks / Discovery retry (spec §4.G steps 5-6).
func (r *Resolver) Resolve(ctx context.Context, sub SubIntent, tools []ToolDescriptor) (ResolvedCapability, error) {
	for _, s := range r.Strategies {
		result, handled, err := s.Resolve(ctx, sub, tools)
		if err != nil {
			return ResolvedCapability{}, err
		}
		if handled {
			return result, nil
		}
	}
	return NeedsReferral("no strategy resolved this sub-intent", "discovery"), nil
}

// CatalogueResolveStrategy matches a sub-intent's description/domain hint
// against the ranked tool catalogue discover_tools produced, scoring by
// keyword overlap (a stand-in for the spec's semantic-matching machinery
// in discovery/semantic.go, reused here at a coarser grain since resolve
// only needs a yes/no + confidence, not a full ranked list).
type CatalogueResolveStrategy struct {
	MinConfidence float64
}

func NewCatalogueResolveStrategy() *CatalogueResolveStrategy {
	return &CatalogueResolveStrategy{MinConfidence: 0.34}
}

func (s *CatalogueResolveStrategy) Resolve(_ context.Context, sub SubIntent, tools []ToolDescriptor) (ResolvedCapability, bool, error) {
	best := ToolDescriptor{}
	bestScore := 0.0
	for _, t := range tools {
		score := overlapScore(sub, t)
		if score > bestScore {
			bestScore = score
			best = t
		}
	}
	if bestScore < s.MinConfidence {
		return ResolvedCapability{}, false, nil
	}
	args := value.Map()
	for k, v := range sub.ExtractedParams {
		args = args.WithMapEntry(value.KeywordKey(k), v)
	}
	return Local(best.ID, args, bestScore), true, nil
}

func overlapScore(sub SubIntent, t ToolDescriptor) float64 {
	words := tokenize(sub.Description)
	if len(words) == 0 {
		return 0
	}
	hits := 0.0
	idWords := tokenize(strings.NewReplacer(".", " ", "_", " ").Replace(t.ID))
	descWords := tokenize(t.Description)
	for _, w := range words {
		if containsWord(idWords, w) || containsWord(descWords, w) {
			hits++
		}
	}
	score := hits / float64(len(words))
	if sub.DomainHint != "" && containsHint(t.DomainHints, sub.DomainHint) {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}
	return score
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

func containsWord(words []string, w string) bool {
	for _, c := range words {
		if c == w {
			return true
		}
	}
	return false
}

// BuiltinResolveStrategy recognises sub-intents the runtime can satisfy
// itself without a Marketplace dispatch at all (spec §4.G step 4's
// "BuiltIn{id,args}" variant) — currently user-input prompts and plain
// value output, CCOS's two always-available built-ins.
type BuiltinResolveStrategy struct{}

func NewBuiltinResolveStrategy() *BuiltinResolveStrategy { return &BuiltinResolveStrategy{} }

func (s *BuiltinResolveStrategy) Resolve(_ context.Context, sub SubIntent, _ []ToolDescriptor) (ResolvedCapability, bool, error) {
	switch sub.IntentType {
	case IntentUserInput:
		args := value.Map(value.Entry(value.KeywordKey("prompt"), value.String(sub.Description)))
		return BuiltIn("ccos.user.ask", args), true, nil
	case IntentOutput:
		args := value.Map(value.Entry(value.KeywordKey("message"), value.String(sub.Description)))
		return BuiltIn("ccos.output.emit", args), true, nil
	default:
		return ResolvedCapability{}, false, nil
	}
}
