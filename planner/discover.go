package planner

import "strings"

// domainKeywords maps a coarse domain hint to the keywords that suggest it
// in a goal string (spec §4.G step 1 "infer domain hints by keyword
// match"). Kept tiny and explicit, matching the teacher's plain
// strings.Contains keyword scans (e.g. processor/ast/predicates.go) rather
// than an NLP dependency.
var domainKeywords = map[string][]string{
	"filesystem": {"file", "directory", "folder", "path", "read", "write"},
	"network":    {"http", "url", "fetch", "download", "api", "request"},
	"data":       {"csv", "json", "transform", "parse", "convert", "aggregate"},
	"messaging":  {"email", "slack", "notify", "message", "send"},
	"scheduling": {"schedule", "remind", "cron", "recurring", "every"},
}

// ToolCatalogue supplies the candidate tools discover_tools ranks; a
// Pipeline reads it from its Catalogue field.
type ToolCatalogue interface {
	Tools() []ToolDescriptor
}

// ToolCatalogueFunc adapts a plain function to ToolCatalogue.
type ToolCatalogueFunc func() []ToolDescriptor

func (f ToolCatalogueFunc) Tools() []ToolDescriptor { return f() }

// DiscoverTools infers domain hints from goal and ranks catalogue's tools
// by action class (Query beats CRUD beats Transform) then by how many of
// the inferred domain hints a tool declares (spec §4.G step 1).
func DiscoverTools(goal string, catalogue ToolCatalogue) DiscoverResult {
	hints := inferDomainHints(goal)

	var tools []ToolDescriptor
	if catalogue != nil {
		tools = append(tools, catalogue.Tools()...)
	}

	rank := func(t ToolDescriptor) (int, int) {
		affinity := 0
		for _, h := range t.DomainHints {
			if containsHint(hints, h) {
				affinity++
			}
		}
		return int(t.ActionClass), affinity
	}

	sorted := make([]ToolDescriptor, len(tools))
	copy(sorted, tools)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0; j-- {
			ac, aa := rank(sorted[j])
			bc, ba := rank(sorted[j-1])
			if ac > bc || (ac == bc && aa > ba) {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			} else {
				break
			}
		}
	}

	return DiscoverResult{Tools: sorted, DomainHints: hints}
}

func inferDomainHints(goal string) []string {
	lower := strings.ToLower(goal)
	var hints []string
	for domain, keywords := range domainKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hints = append(hints, domain)
				break
			}
		}
	}
	return hints
}

func containsHint(hints []string, h string) bool {
	for _, candidate := range hints {
		if candidate == h {
			return true
		}
	}
	return false
}
