package discovery

import (
	"context"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// Suggestion is an LLM-proposed candidate server name/description pair fed
// into the llm_suggest stage (spec §4.I).
type Suggestion struct {
	ID, Name, Description, Endpoint string
}

// SuggestFunc asks an LLM (or any other collaborator) for additional
// candidates the registry sources missed; nil disables the stage.
type SuggestFunc func(ctx context.Context, need string) ([]Suggestion, error)

// Pipeline runs the full Server Discovery Pipeline (spec §4.I):
// registry_search → llm_suggest → rank → dedupe → limit → per-candidate
// introspection → staging → approval.
type Pipeline struct {
	Sources       *MultiSource
	Suggest       SuggestFunc
	Ranker        Ranker
	Threshold     float64
	MaxRanked     int
	Introspectors []Introspector
	Staging       *StagingArea
	Approval      ApprovalQueue
	ApproverName  string
	ExpiryHours   int
}

// NewPipeline builds a Pipeline with sane defaults: SemanticRanker,
// threshold 0.3, max_ranked 10, an in-memory approval queue, no staging
// sink (the caller must set Staging before Run can materialize anything).
func NewPipeline(sources *MultiSource) *Pipeline {
	return &Pipeline{
		Sources:     sources,
		Ranker:      SemanticRanker{},
		Threshold:   0.3,
		MaxRanked:   10,
		Approval:    NewMemApprovalQueue(),
		ExpiryHours: 72,
	}
}

// Discovered is one fully-processed candidate: ranked, introspected,
// staged, and enqueued for approval.
type Discovered struct {
	Candidate     RegistrySearchResult
	Introspection *IntrospectionResult
	Staged        []StagedCapability
	ApprovalID    string
	Risk          RiskAssessment
}

// Run executes the whole pipeline for one need/query string.
func (p *Pipeline) Run(ctx context.Context, need string) ([]Discovered, error) {
	var candidates []RegistrySearchResult
	if p.Sources != nil {
		candidates = p.Sources.Search(ctx, need)
	}
	if p.Suggest != nil {
		suggestions, err := p.Suggest(ctx, need)
		if err == nil {
			for _, s := range suggestions {
				candidates = append(candidates, SuggestAsWebDoc(s.ID, s.Name, s.Description, s.Endpoint))
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ranker := p.Ranker
	if ranker == nil {
		ranker = SemanticRanker{}
	}
	ranked, err := ranker.Rank(ctx, need, candidates)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "ranking discovery candidates failed")
	}
	ranked = ApplyThreshold(ranked, p.Threshold)
	ranked = Dedupe(ranked)
	ranked = Limit(ranked, p.MaxRanked)

	results := make([]Discovered, 0, len(ranked))
	for _, candidate := range ranked {
		d := Discovered{Candidate: candidate}

		introspection, err := IntrospectFirst(ctx, candidate, p.Introspectors)
		if err != nil {
			// No introspector succeeded: still surface the ranked candidate
			// so an operator can manually investigate, but nothing gets
			// staged or queued for approval without a structured surface.
			results = append(results, d)
			continue
		}
		d.Introspection = introspection
		d.Risk = AssessRisk(candidate, introspection)

		if p.Staging != nil {
			staged, err := p.Staging.Stage(ctx, serverName(candidate), introspection)
			if err == nil {
				d.Staged = staged
			}
		}

		if p.Approval != nil {
			id, err := p.Approval.AddServerDiscovery(ctx, candidate.Source, candidate, candidate.Tags, d.Risk, p.ApproverName, p.ExpiryHours)
			if err == nil {
				d.ApprovalID = id
			}
		}

		results = append(results, d)
	}
	return results, nil
}

func serverName(candidate RegistrySearchResult) string {
	if candidate.ID != "" {
		return candidate.ID
	}
	return candidate.Name
}
