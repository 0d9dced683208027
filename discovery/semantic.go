package discovery

import (
	"regexp"
	"strings"
)

// domainKeywords follows planner.domainKeywords' keyword-scan idiom with
// its own keyword lists, kept here so discovery doesn't import planner (discovery
// sits upstream of planner in the dependency graph: planner's discovery
// retry hook calls into this package, not the other way around).
var domainKeywords = map[string][]string{
	"filesystem": {"file", "directory", "path", "read", "write", "disk"},
	"network":    {"http", "url", "request", "api", "fetch", "download"},
	"data":       {"json", "csv", "parse", "transform", "convert", "format"},
	"messaging":  {"email", "slack", "notify", "message", "send"},
	"scheduling": {"schedule", "calendar", "remind", "cron", "timer"},
}

// domainMismatchPenalty sits in the spec's named 0.5-0.8 range (spec §4.I);
// SemanticScore retains (1 - penalty) of the unpenalized score when the
// need and candidate infer different domains.
const domainMismatchPenalty = 0.65

var actionVerbs = []string{
	"get", "list", "create", "update", "delete", "fetch", "send", "search",
	"convert", "transform", "schedule", "notify", "query", "post", "put",
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
var wordSplit = regexp.MustCompile(`[._\-\s]+`)

// extractKeywords splits a capability/server ID on dots, underscores,
// hyphens, and camelCase boundaries (spec §4.I "extract_keywords for IDs
// (dot/underscore/camelCase)").
func extractKeywords(id string) []string {
	spaced := camelBoundary.ReplaceAllString(id, "$1 $2")
	parts := wordSplit.Split(spaced, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// extractKeywordsFromText tokenizes free text on whitespace/punctuation
// (spec §4.I "extract_keywords_from_text for descriptions").
func extractKeywordsFromText(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	return fields
}

// extractActionVerbs returns the subset of words that look like an action
// verb, used to weight operation alignment between a need and a candidate.
func extractActionVerbs(words []string) []string {
	var out []string
	for _, w := range words {
		for _, v := range actionVerbs {
			if w == v {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

func inferDomain(words []string) string {
	best, bestCount := "", 0
	for domain, kws := range domainKeywords {
		count := 0
		for _, w := range words {
			for _, kw := range kws {
				if w == kw {
					count++
				}
			}
		}
		if count > bestCount {
			best, bestCount = domain, count
		}
	}
	return best
}

func overlapCount(a, b []string) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				n++
			}
		}
	}
	return n
}

// SemanticScore computes a keyword-based match score in [0,1] between a
// free-text need and a RegistrySearchResult candidate (spec §4.I "Semantic
// matching is keyword- and optionally embedding-based ... domain-keyword
// mismatch penalty of 0.5-0.8 applied when need and manifest disagree on
// domain").
func SemanticScore(need string, candidate RegistrySearchResult) float64 {
	needWords := extractKeywordsFromText(need)
	idWords := extractKeywords(candidate.ID)
	descWords := extractKeywordsFromText(candidate.Description)
	candidateWords := append(append([]string{}, idWords...), descWords...)

	totalNeed := len(needWords)
	if totalNeed == 0 {
		return 0
	}
	overlap := overlapCount(needWords, candidateWords)
	score := float64(overlap) / float64(totalNeed)

	needVerbs := extractActionVerbs(needWords)
	candVerbs := extractActionVerbs(candidateWords)
	if len(needVerbs) > 0 {
		verbOverlap := overlapCount(needVerbs, candVerbs)
		score += 0.2 * float64(verbOverlap) / float64(len(needVerbs))
	}

	needDomain := inferDomain(needWords)
	candDomain := inferDomain(candidateWords)
	if needDomain != "" && candDomain != "" && needDomain != candDomain {
		score *= 1 - domainMismatchPenalty
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
