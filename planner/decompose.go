package planner

import (
	"context"
	"regexp"
	"strings"

	"github.com/mandubian/ccos-sub008/value"
)

// Decomposer turns a goal (plus optionally-discovered tools) into an
// ordered SubIntent list (spec §4.G step 2: "Strategies: template-based
// patterns, LLM, or hybrid").
type Decomposer interface {
	Decompose(ctx context.Context, goal string, tools []ToolDescriptor) (DecomposeResult, error)
}

// splitWords recognises the conjunctions a template strategy uses to break
// a goal into steps, ordered so " and then " is tried before the bare
// " then " and " and " it contains.
var splitWords = []string{", then ", " and then ", " then ", " and "}

var sentenceSplit = regexp.MustCompile(`\s*[;.]\s*`)

// TemplateDecomposer recognises simple multi-clause goals by splitting on
// conjunctions and classifying each clause by a keyword heuristic. It is
// the zero-dependency fallback strategy; confidence reflects how much of
// the goal it actually understood (single-clause goals score higher).
type TemplateDecomposer struct{}

func NewTemplateDecomposer() *TemplateDecomposer { return &TemplateDecomposer{} }

func (d *TemplateDecomposer) Decompose(_ context.Context, goal string, tools []ToolDescriptor) (DecomposeResult, error) {
	clauses := splitClauses(goal)

	subs := make([]SubIntent, 0, len(clauses))
	for i, clause := range clauses {
		si := SubIntent{
			Description:     strings.TrimSpace(clause),
			IntentType:      classifyClause(clause),
			ExtractedParams: make(map[string]value.Value),
		}
		if i > 0 {
			si.DomainHint = domainHintFor(clause)
			si.Dependencies = []int{i - 1}
		} else {
			si.DomainHint = domainHintFor(clause)
		}
		subs = append(subs, si)
	}

	confidence := 0.9
	if len(subs) > 1 {
		confidence = 0.6
	}
	if len(subs) == 0 {
		confidence = 0
	}

	return DecomposeResult{SubIntents: subs, Confidence: confidence}, nil
}

func splitClauses(goal string) []string {
	var clauses []string
	for _, sentence := range sentenceSplit.Split(strings.TrimSpace(goal), -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		clauses = append(clauses, splitOnConjunctions(sentence)...)
	}
	return clauses
}

func splitOnConjunctions(sentence string) []string {
	lower := strings.ToLower(sentence)
	for _, word := range splitWords {
		if idx := strings.Index(lower, word); idx >= 0 {
			left := sentence[:idx]
			right := sentence[idx+len(word):]
			return append(splitOnConjunctions(left), splitOnConjunctions(right)...)
		}
	}
	return []string{sentence}
}

var outputKeywords = []string{"output", "return", "display", "show", "print"}
var transformKeywords = []string{"convert", "transform", "parse", "aggregate", "summarize", "filter", "sort"}
var inputKeywords = []string{"ask", "prompt", "confirm", "input from the user", "get input"}

func classifyClause(clause string) IntentType {
	lower := strings.ToLower(clause)
	switch {
	case containsAny(lower, inputKeywords):
		return IntentUserInput
	case containsAny(lower, outputKeywords):
		return IntentOutput
	case containsAny(lower, transformKeywords):
		return IntentDataTransform
	case strings.Contains(lower, " and "):
		return IntentComposite
	default:
		return IntentAPICall
	}
}

func domainHintFor(clause string) string {
	hints := inferDomainHints(clause)
	if len(hints) == 0 {
		return ""
	}
	return hints[0]
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// LLMDecomposeFunc is the hook a Hybrid strategy calls for clauses the
// template strategy can't confidently classify. The caller supplies it;
// llm/providers offers chat-completion Providers only, not this function.
type LLMDecomposeFunc func(ctx context.Context, goal string, tools []ToolDescriptor) (DecomposeResult, error)

// HybridDecomposer runs the template strategy first and only falls
// through to the LLM strategy when confidence is below threshold (spec
// §4.G step 2 "hybrid"), keeping the (metered, latent) LLM call off the
// common path.
type HybridDecomposer struct {
	Template  Decomposer
	LLM       LLMDecomposeFunc
	Threshold float64
}

func NewHybridDecomposer(llm LLMDecomposeFunc) *HybridDecomposer {
	return &HybridDecomposer{Template: NewTemplateDecomposer(), LLM: llm, Threshold: 0.7}
}

func (d *HybridDecomposer) Decompose(ctx context.Context, goal string, tools []ToolDescriptor) (DecomposeResult, error) {
	result, err := d.Template.Decompose(ctx, goal, tools)
	if err != nil {
		return DecomposeResult{}, err
	}
	if result.Confidence >= d.Threshold || d.LLM == nil {
		return result, nil
	}
	return d.LLM(ctx, goal, tools)
}
