package intentgraph

import (
	"sync"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// Graph is the storage abstraction over Intents and Edges (spec §4.F).
// Edge creation validates acyclicity/forest invariants under the same
// lock it writes behind, matching spec §5's "pessimistic reads to
// validate acyclicity before write" (CCOS's single coarse mutex stands in
// for the spec's async RW lock per the scheduling model in §5).
type Graph struct {
	mu sync.Mutex

	intents map[string]*Intent
	// outEdges[from] and inEdges[to] -> edges of every type
	outEdges map[string][]*Edge
	inEdges  map[string][]*Edge
}

func NewGraph() *Graph {
	return &Graph{
		intents:  make(map[string]*Intent),
		outEdges: make(map[string][]*Edge),
		inEdges:  make(map[string][]*Edge),
	}
}

// StoreIntent registers a new Intent, or overwrites an existing one with
// the same ID (used for in-place field updates outside UpdateStatus).
func (g *Graph) StoreIntent(i *Intent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[i.ID] = i
}

// GetIntent returns the Intent with the given ID.
func (g *Graph) GetIntent(id string) (*Intent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.intents[id]
	return i, ok
}

// UpdateStatus transitions intent id's status, enforcing the lifecycle in
// spec §4.F. Returns ConflictError (ccoserr.KindConflict) for an illegal
// transition.
func (g *Graph) UpdateStatus(id string, to Status) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.intents[id]
	if !ok {
		return ccoserr.New(ccoserr.KindInternalError, "intent graph: unknown intent %q", id)
	}
	if !CanTransition(i.Status, to) {
		return ccoserr.New(ccoserr.KindConflict, "intent graph: illegal status transition %s -> %s for intent %q", i.Status, to, id)
	}
	i.Status = to
	return nil
}

// AddEdge inserts a typed edge, enforcing spec §3's Intent Graph
// invariants: IsSubgoalOf forms a forest (each non-root intent has at most
// one IsSubgoalOf parent) and DependsOn is acyclic among non-Archived
// intents. Returns CycleDetected or Conflict on violation.
func (g *Graph) AddEdge(e *Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch e.Type {
	case EdgeIsSubgoalOf:
		for _, existing := range g.outEdges[e.From] {
			if existing.Type == EdgeIsSubgoalOf {
				return ccoserr.New(ccoserr.KindConflict, "intent graph: %q already has an IsSubgoalOf parent (%q)", e.From, existing.To)
			}
		}
	case EdgeDependsOn:
		if g.wouldCreateDependsOnCycle(e.From, e.To) {
			return ccoserr.New(ccoserr.KindCycleDetected, "intent graph: DependsOn %q -> %q would create a cycle", e.From, e.To)
		}
	}

	g.outEdges[e.From] = append(g.outEdges[e.From], e)
	g.inEdges[e.To] = append(g.inEdges[e.To], e)
	return nil
}

// wouldCreateDependsOnCycle reports whether adding from->to as a DependsOn
// edge would create a cycle among non-Archived intents: true if to can
// already reach from via existing DependsOn edges.
func (g *Graph) wouldCreateDependsOnCycle(from, to string) bool {
	if from == to {
		return true
	}
	visited := make(map[string]bool)
	var visit func(node string) bool
	visit = func(node string) bool {
		if node == from {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		// DependsOn acyclicity is only required "among non-Archived
		// intents" (spec §4.F): an Archived node's outgoing edges no
		// longer count toward a cycle.
		if i, ok := g.intents[node]; ok && i.Status == StatusArchived {
			return false
		}
		for _, e := range g.outEdges[node] {
			if e.Type != EdgeDependsOn {
				continue
			}
			if visit(e.To) {
				return true
			}
		}
		return false
	}
	return visit(to)
}

// GetChildren returns the intent IDs with an IsSubgoalOf edge pointing at
// id (id's subgoals).
func (g *Graph) GetChildren(id string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, e := range g.inEdges[id] {
		if e.Type == EdgeIsSubgoalOf {
			out = append(out, e.From)
		}
	}
	return out
}

// GetDependencies returns the intent IDs that id DependsOn.
func (g *Graph) GetDependencies(id string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, e := range g.outEdges[id] {
		if e.Type == EdgeDependsOn {
			out = append(out, e.To)
		}
	}
	return out
}

// Edges returns every edge currently stored, for introspection and tests.
func (g *Graph) Edges() []*Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*Edge
	for _, edges := range g.outEdges {
		out = append(out, edges...)
	}
	return out
}
