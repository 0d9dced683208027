package introspection

import (
	"context"
	"sort"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/pl"
	"github.com/mandubian/ccos-sub008/planner"
	"github.com/mandubian/ccos-sub008/value"
)

// GraphNode is one capability id and how many times it was observed or
// statically referenced.
type GraphNode struct {
	ID    string
	Count int
}

// GraphEdge is a parent→child call relationship and how many times it was
// observed (observed mode only — static mode has no execution order to
// derive edges from).
type GraphEdge struct {
	From  string
	To    string
	Count int
}

// CapabilityGraph answers introspect.capability_graph (spec §4.J): either
// "observed" (scan the Causal Chain's recorded CapabilityCall actions) or
// "static_plan" (parse a plan's PL body and walk its unevaluated `call`
// forms) without ever executing anything.
type CapabilityGraph struct {
	Chain   *causalchain.Chain
	Archive planner.PlanArchive
}

func NewCapabilityGraph(chain *causalchain.Chain, archive planner.PlanArchive) *CapabilityGraph {
	return &CapabilityGraph{Chain: chain, Archive: archive}
}

// Call implements capability.LocalFunc for ccos.introspect.capability_graph.
func (g *CapabilityGraph) Call(ctx context.Context, inputs value.Value) (value.Value, error) {
	mode, _ := strInput(inputs, "mode")
	if mode == "" {
		mode = "observed"
	}
	limit, _ := intInput(inputs, "limit")

	switch mode {
	case "observed":
		planID, _ := strInput(inputs, "plan_id")
		capabilityID, _ := strInput(inputs, "capability_id")
		return g.observed(planID, capabilityID, int(limit)), nil
	case "static_plan":
		planID, ok := strInput(inputs, "plan_id")
		if !ok {
			return value.Nil, ccoserr.New(ccoserr.KindParseError, "capability_graph static_plan mode requires plan_id")
		}
		return g.staticPlan(ctx, planID, int(limit))
	default:
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "capability_graph: unknown mode %q", mode)
	}
}

func (g *CapabilityGraph) observed(planID, capabilityID string, limit int) value.Value {
	actions := g.Chain.QueryActions(causalchain.Filter{
		PlanID:       planID,
		CapabilityID: capabilityID,
		Type:         causalchain.ActionCapabilityCall,
	})

	counts := map[string]int{}
	edgeCounts := map[[2]string]int{}
	for _, a := range actions {
		counts[a.FunctionName]++
		if parent, ok := g.Chain.GetParent(a.ID); ok && parent.Type == causalchain.ActionCapabilityCall {
			edgeCounts[[2]string{parent.FunctionName, a.FunctionName}]++
		}
	}

	nodes := topNodes(counts, limit)
	var edges []GraphEdge
	for k, c := range edgeCounts {
		edges = append(edges, GraphEdge{From: k[0], To: k[1], Count: c})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Count != edges[j].Count {
			return edges[i].Count > edges[j].Count
		}
		return edges[i].From < edges[j].From
	})

	return graphResult("observed", nodes, edges)
}

func (g *CapabilityGraph) staticPlan(ctx context.Context, planID string, limit int) (value.Value, error) {
	p, ok, err := g.Archive.GetByID(ctx, planID)
	if err != nil {
		return value.Nil, err
	}
	if !ok {
		return value.Nil, ccoserr.New(ccoserr.KindUnknownCapability, "capability_graph: no archived plan %q", planID)
	}
	forms, err := pl.Parse(p.Body)
	if err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindParseError, err, "capability_graph: parsing plan %q failed", planID)
	}

	counts := map[string]int{}
	for _, form := range forms {
		collectCallTargets(form, counts)
	}

	return graphResult("static_plan", topNodes(counts, limit), nil), nil
}

// collectCallTargets recursively walks an unevaluated PL form tree, the same
// shape pl/interpreter.go's evalCall consumes, collecting every `(call id
// ...)` target without evaluating anything.
func collectCallTargets(form value.Value, counts map[string]int) {
	switch form.Kind() {
	case value.KindList, value.KindVector:
		items, ok := form.Items()
		if !ok {
			return
		}
		if form.Kind() == value.KindList && len(items) >= 2 {
			if head, ok := items[0].Str(); ok && head == "call" {
				if id, ok := items[1].Str(); ok {
					counts[id]++
				}
			}
		}
		for _, it := range items {
			collectCallTargets(it, counts)
		}
	case value.KindMap:
		for _, k := range form.MapKeys() {
			v, _ := form.MapGet(k)
			collectCallTargets(v, counts)
		}
	}
}

func topNodes(counts map[string]int, limit int) []GraphNode {
	nodes := make([]GraphNode, 0, len(counts))
	for id, c := range counts {
		nodes = append(nodes, GraphNode{ID: id, Count: c})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Count != nodes[j].Count {
			return nodes[i].Count > nodes[j].Count
		}
		return nodes[i].ID < nodes[j].ID
	})
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes
}

func graphResult(mode string, nodes []GraphNode, edges []GraphEdge) value.Value {
	nodeVals := make([]value.Value, len(nodes))
	for i, n := range nodes {
		nodeVals[i] = value.Map(
			value.Entry(value.KeywordKey("id"), value.String(n.ID)),
			value.Entry(value.KeywordKey("count"), value.Int(int64(n.Count))),
		)
	}
	edgeVals := make([]value.Value, len(edges))
	for i, e := range edges {
		edgeVals[i] = value.Map(
			value.Entry(value.KeywordKey("from"), value.String(e.From)),
			value.Entry(value.KeywordKey("to"), value.String(e.To)),
			value.Entry(value.KeywordKey("count"), value.Int(int64(e.Count))),
		)
	}
	return value.Map(
		value.Entry(value.KeywordKey("mode"), value.String(mode)),
		value.Entry(value.KeywordKey("nodes"), value.VectorOf(nodeVals)),
		value.Entry(value.KeywordKey("edges"), value.VectorOf(edgeVals)),
	)
}
