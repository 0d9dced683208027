package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mandubian/ccos-sub008/llm"
)

// Ranker scores and reorders registry_search candidates against a need
// (spec §4.I "rank (LLM-ranked; override match_score; drop below
// threshold)").
type Ranker interface {
	Rank(ctx context.Context, need string, candidates []RegistrySearchResult) ([]RegistrySearchResult, error)
}

// SemanticRanker ranks purely off SemanticScore — the default, and the
// fallback an LLMRanker uses when its completion call fails.
type SemanticRanker struct{}

func (SemanticRanker) Rank(_ context.Context, need string, candidates []RegistrySearchResult) ([]RegistrySearchResult, error) {
	scored := make([]RegistrySearchResult, len(candidates))
	copy(scored, candidates)
	for i := range scored {
		scored[i].MatchScore = SemanticScore(need, scored[i])
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].MatchScore > scored[j].MatchScore })
	return scored, nil
}

// LLMRanker asks an LLM to judge relevance, overriding each candidate's
// match_score (spec §4.I); it starts from SemanticRanker's ordering so a
// provider failure still returns a usable ranking.
type LLMRanker struct {
	Client *llm.Client
	Model  string
}

func NewLLMRanker(client *llm.Client) *LLMRanker {
	return &LLMRanker{Client: client}
}

func (r *LLMRanker) Rank(ctx context.Context, need string, candidates []RegistrySearchResult) ([]RegistrySearchResult, error) {
	base, _ := SemanticRanker{}.Rank(ctx, need, candidates)
	if r.Client == nil || len(base) == 0 {
		return base, nil
	}

	resp, err := r.Client.Complete(ctx, llm.Request{
		Model: r.Model,
		Messages: []llm.Message{
			{Role: "system", Content: "Score each candidate server's relevance to the need from 0.0 to 1.0, one line per candidate as \"id=score\". Reply with nothing else."},
			{Role: "user", Content: rankingPrompt(need, base)},
		},
	})
	if err != nil {
		return base, nil
	}

	overrides := parseScores(resp.Content)
	for i, c := range base {
		if score, ok := overrides[c.ID]; ok {
			base[i].MatchScore = score
		}
	}
	sort.SliceStable(base, func(i, j int) bool { return base[i].MatchScore > base[j].MatchScore })
	return base, nil
}

func rankingPrompt(need string, candidates []RegistrySearchResult) string {
	var sb strings.Builder
	sb.WriteString("Need: ")
	sb.WriteString(need)
	sb.WriteString("\nCandidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "%s: %s\n", c.ID, c.Description)
	}
	return sb.String()
}

func parseScores(text string) map[string]float64 {
	out := make(map[string]float64)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.LastIndex(line, "=")
		if idx < 0 {
			continue
		}
		id := strings.TrimSpace(line[:idx])
		var score float64
		if _, err := fmt.Sscanf(strings.TrimSpace(line[idx+1:]), "%f", &score); err == nil {
			out[id] = score
		}
	}
	return out
}

// ApplyThreshold drops every candidate scoring below threshold (spec §4.I
// "drop below threshold").
func ApplyThreshold(candidates []RegistrySearchResult, threshold float64) []RegistrySearchResult {
	out := make([]RegistrySearchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.MatchScore >= threshold {
			out = append(out, c)
		}
	}
	return out
}

// Dedupe removes candidates sharing an Endpoint, keeping the first
// (highest-ranked, since Dedupe runs after Rank) occurrence (spec §4.I
// "dedupe (by endpoint)").
func Dedupe(candidates []RegistrySearchResult) []RegistrySearchResult {
	seen := make(map[string]bool, len(candidates))
	out := make([]RegistrySearchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Endpoint != "" && seen[c.Endpoint] {
			continue
		}
		if c.Endpoint != "" {
			seen[c.Endpoint] = true
		}
		out = append(out, c)
	}
	return out
}

// Limit truncates to max_ranked (spec §4.I "limit (by max_ranked)").
func Limit(candidates []RegistrySearchResult, maxRanked int) []RegistrySearchResult {
	if maxRanked <= 0 || len(candidates) <= maxRanked {
		return candidates
	}
	return candidates[:maxRanked]
}

// SuggestAsWebDoc converts an LLM-suggested server name/description pair
// into a RegistrySearchResult the rest of the pipeline can rank and
// introspect like any other candidate (spec §4.I "llm_suggest (converted
// to RegistrySearchResult with score 0.7, category WebDoc)").
func SuggestAsWebDoc(id, name, description, endpoint string) RegistrySearchResult {
	return RegistrySearchResult{
		ID: id, Name: name, Description: description, Endpoint: endpoint,
		Source: "llm_suggest", Category: CategoryWebDoc, MatchScore: 0.7,
	}
}
