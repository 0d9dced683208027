package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/intentgraph"
	"github.com/mandubian/ccos-sub008/pl"
	"github.com/mandubian/ccos-sub008/value"
)

// Pipeline wires the eight steps of spec §4.G into one driver: discover,
// decompose, store intents, resolve, fallback, (bounded) discovery retry,
// emit PL, archive. It holds no state of its own beyond its collaborators,
// mirroring the teacher's processor/context-builder Builder — a plain
// struct of dependencies with one entry-point method.
type Pipeline struct {
	Catalogue        ToolCatalogue
	Decomposer       Decomposer
	Resolver         *Resolver
	Graph            *intentgraph.Graph
	Archive          PlanArchive
	Events           EventSink
	MaxDiscoveryRounds int

	// DiscoveryRetry searches registries for servers matching the
	// unresolved descriptions and returns freshly discovered tools (spec
	// §4.G step 6); nil disables the retry loop entirely. discovery.Pipeline
	// satisfies this via a thin adapter.
	DiscoveryRetry func(ctx context.Context, unresolved []string) ([]ToolDescriptor, error)

	// Synthesize is tried once per sub-intent still unresolved after
	// discovery retry is exhausted, before falling back to NeedsReferral
	// (spec §4.H); nil skips straight to Fallback. synthesis.Harness
	// satisfies this via a thin adapter that registers the synthesized
	// manifest onto the Marketplace and returns a Local resolution for it.
	Synthesize func(ctx context.Context, sub SubIntent) (ResolvedCapability, error)
}

// NewPipeline builds a Pipeline with the zero-dependency defaults
// (TemplateDecomposer, builtin-then-catalogue resolver chain, in-memory
// plan archive) so callers only need to override what they actually have
// (an LLM decomposer, a real discovery pipeline, a JetStream-backed
// archive).
func NewPipeline(graph *intentgraph.Graph, events EventSink) *Pipeline {
	return &Pipeline{
		Decomposer:         NewTemplateDecomposer(),
		Resolver:           NewResolver(NewBuiltinResolveStrategy(), NewCatalogueResolveStrategy()),
		Graph:              graph,
		Archive:            NewMemPlanArchive(),
		Events:             events,
		MaxDiscoveryRounds: 2,
	}
}

// PlanResult is Run's output: the archived Plan plus the per-sub-intent
// resolutions, so a caller (e.g. the runtime session) can report
// has_pending_synthesis and surface NeedsReferral prompts.
type PlanResult struct {
	RootIntentID string
	Plan         *Plan
	Resolutions  []ResolvedCapability
}

// Run executes the full pipeline for one goal, from discovery through
// archival (spec §4.G).
func (p *Pipeline) Run(ctx context.Context, goal string) (*PlanResult, error) {
	discovered := p.discover(ctx, goal)

	decomposed, err := p.decompose(ctx, goal, discovered.Tools)
	if err != nil {
		return nil, err
	}

	rootID, err := p.storeIntents(ctx, goal, decomposed.SubIntents)
	if err != nil {
		return nil, err
	}

	resolutions, err := p.resolveAll(ctx, decomposed.SubIntents, discovered.Tools)
	if err != nil {
		return nil, err
	}

	body := p.emitPL(decomposed.SubIntents, resolutions)
	planPending := false
	for _, r := range resolutions {
		if r.Kind == ResolutionNeedsReferral {
			planPending = true
			break
		}
	}

	archived, err := p.archive(ctx, rootID, body, planPending)
	if err != nil {
		return nil, err
	}

	return &PlanResult{RootIntentID: rootID, Plan: archived, Resolutions: resolutions}, nil
}

// discover runs spec §4.G step 1.
func (p *Pipeline) discover(ctx context.Context, goal string) DiscoverResult {
	result := DiscoverTools(goal, p.Catalogue)
	_ = emit(ctx, p.Events, causalchain.ActionDiscoverySearchCompleted, "", "", discoverySearchCompletedData(result))
	return result
}

// decompose runs spec §4.G step 2.
func (p *Pipeline) decompose(ctx context.Context, goal string, tools []ToolDescriptor) (DecomposeResult, error) {
	_ = emit(ctx, p.Events, causalchain.ActionDecompositionStarted, "", "", decompositionStartedData(goal))
	result, err := p.Decomposer.Decompose(ctx, goal, tools)
	if err != nil {
		return DecomposeResult{}, err
	}
	_ = emit(ctx, p.Events, causalchain.ActionDecompositionCompleted, "", "", decompositionCompletedData(result))
	return result, nil
}

// storeIntents runs spec §4.G step 3: a root Intent plus one child per
// sub-intent, IsSubgoalOf the root and DependsOn among siblings per
// Dependencies.
func (p *Pipeline) storeIntents(ctx context.Context, goal string, subs []SubIntent) (string, error) {
	rootID := uuid.NewString()
	root := intentgraph.NewIntent(rootID, goal)
	root.TriggeredBy = intentgraph.TriggeredByHumanRequest
	p.Graph.StoreIntent(root)
	_ = emit(ctx, p.Events, causalchain.ActionIntentCreated, "", rootID, intentCreatedData(root))

	ids := make([]string, len(subs))
	for i, sub := range subs {
		id := uuid.NewString()
		ids[i] = id
		intent := intentgraph.NewIntent(id, sub.Description)
		intent.TriggeredBy = intentgraph.TriggeredByPlanExecution
		intent.ParentIntent = rootID
		p.Graph.StoreIntent(intent)
		root.ChildIntents = append(root.ChildIntents, id)

		_ = emit(ctx, p.Events, causalchain.ActionIntentCreated, "", id, intentCreatedData(intent))

		if err := p.Graph.AddEdge(&intentgraph.Edge{From: id, To: rootID, Type: intentgraph.EdgeIsSubgoalOf}); err != nil {
			return "", err
		}
		_ = emit(ctx, p.Events, causalchain.ActionEdgeCreated, "", id, edgeCreatedData(id, rootID, intentgraph.EdgeIsSubgoalOf))
	}

	for i, sub := range subs {
		for _, dep := range sub.Dependencies {
			if dep < 0 || dep >= len(ids) {
				continue
			}
			e := &intentgraph.Edge{From: ids[i], To: ids[dep], Type: intentgraph.EdgeDependsOn}
			if err := p.Graph.AddEdge(e); err != nil {
				return "", err
			}
			_ = emit(ctx, p.Events, causalchain.ActionEdgeCreated, "", ids[i], edgeCreatedData(ids[i], ids[dep], intentgraph.EdgeDependsOn))
		}
	}

	return rootID, nil
}

func intentCreatedData(i *intentgraph.Intent) value.Value {
	return value.Map(
		value.Entry(value.KeywordKey("id"), value.String(i.ID)),
		value.Entry(value.KeywordKey("goal"), value.String(i.Goal)),
	)
}

func edgeCreatedData(from, to string, t intentgraph.EdgeType) value.Value {
	return value.Map(
		value.Entry(value.KeywordKey("from"), value.String(from)),
		value.Entry(value.KeywordKey("to"), value.String(to)),
		value.Entry(value.KeywordKey("type"), value.String(string(t))),
	)
}

// resolveAll runs spec §4.G steps 4-6: resolve, then up to
// MaxDiscoveryRounds of discovery retry feeding fresh candidates back into
// resolution, then Synthesize and finally Fallback for anything still
// unresolved.
func (p *Pipeline) resolveAll(ctx context.Context, subs []SubIntent, tools []ToolDescriptor) ([]ResolvedCapability, error) {
	resolutions := make([]ResolvedCapability, len(subs))
	for i, sub := range subs {
		r, err := p.resolveOne(ctx, sub, tools)
		if err != nil {
			return nil, err
		}
		resolutions[i] = r
	}

	for round := 0; round < p.MaxDiscoveryRounds; round++ {
		unresolved := unresolvedDescriptions(subs, resolutions)
		if len(unresolved) == 0 || p.DiscoveryRetry == nil {
			break
		}
		candidates, err := p.DiscoveryRetry(ctx, unresolved)
		if err != nil || len(candidates) == 0 {
			break
		}
		tools = append(tools, candidates...)
		progressed := false
		for i, sub := range subs {
			if resolutions[i].Resolved() {
				continue
			}
			r, err := p.resolveOne(ctx, sub, tools)
			if err != nil {
				return nil, err
			}
			if r.Resolved() {
				progressed = true
			}
			resolutions[i] = r
		}
		if !progressed {
			break // no new servers surfaced anything usable; stop early
		}
	}

	for i, sub := range subs {
		if resolutions[i].Resolved() {
			continue
		}
		if p.Synthesize != nil {
			if r, err := p.Synthesize(ctx, sub); err == nil && r.Resolved() {
				resolutions[i] = r
				continue
			}
		}
		resolutions[i] = Fallback(sub)
	}

	return resolutions, nil
}

func (p *Pipeline) resolveOne(ctx context.Context, sub SubIntent, tools []ToolDescriptor) (ResolvedCapability, error) {
	_ = emit(ctx, p.Events, causalchain.ActionResolutionStarted, "", "", resolutionStartedData(sub.Description))
	r, err := p.Resolver.Resolve(ctx, sub, tools)
	if err != nil {
		_ = emit(ctx, p.Events, causalchain.ActionResolutionFailed, "", "", resolutionFailedData(err.Error()))
		return ResolvedCapability{}, err
	}
	if r.Resolved() {
		_ = emit(ctx, p.Events, causalchain.ActionResolutionCompleted, "", "", resolutionCompletedData(r))
	} else {
		_ = emit(ctx, p.Events, causalchain.ActionResolutionFailed, "", "", resolutionFailedData(r.Reason))
	}
	return r, nil
}

func unresolvedDescriptions(subs []SubIntent, resolutions []ResolvedCapability) []string {
	var out []string
	for i, r := range resolutions {
		if !r.Resolved() {
			out = append(out, subs[i].Description)
		}
	}
	return out
}

// emitPL runs spec §4.G step 7: render one (step "description" (call
// :id args)) form per sub-intent, wrapped in a (do ...) body when there is
// more than one; NeedsReferral sub-intents are rendered as a
// (call :ccos.synthesis.pending {:reason …}) placeholder so the plan still
// parses while flagging has_pending_synthesis.
func (p *Pipeline) emitPL(subs []SubIntent, resolutions []ResolvedCapability) string {
	steps := make([]value.Value, 0, len(subs))
	for i, sub := range subs {
		r := resolutions[i]
		var call value.Value
		if r.Resolved() {
			args := r.Args
			if args.IsNil() {
				call = value.List(value.Symbol("call"), value.Keyword(r.CapabilityID))
			} else {
				call = value.List(value.Symbol("call"), value.Keyword(r.CapabilityID), args)
			}
		} else {
			call = value.List(value.Symbol("call"), value.Keyword("ccos.synthesis.pending"),
				value.Map(value.Entry(value.KeywordKey("reason"), value.String(r.Reason))))
		}
		step := value.List(value.Symbol("step"), value.String(sub.Description), call)
		steps = append(steps, step)
	}

	var body value.Value
	switch len(steps) {
	case 0:
		body = value.Nil
	case 1:
		body = steps[0]
	default:
		forms := append([]value.Value{value.Symbol("do")}, steps...)
		body = value.ListOf(forms)
	}
	return pl.Canonical(body)
}

// archive runs spec §4.G step 8.
func (p *Pipeline) archive(ctx context.Context, rootID, body string, pending bool) (*Plan, error) {
	hash := HashPlanBody(body)
	plan := &Plan{
		ID:                  fmt.Sprintf("plan-%s", hash[:12]),
		IntentID:            rootID,
		Body:                body,
		ContentHash:         hash,
		HasPendingSynthesis: pending,
		CreatedAt:           time.Now(),
	}
	if err := p.Archive.Store(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}
