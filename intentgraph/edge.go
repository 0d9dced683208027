package intentgraph

// EdgeType classifies a typed edge between two Intents (spec §3 "Intent
// Graph").
type EdgeType string

const (
	EdgeIsSubgoalOf  EdgeType = "IsSubgoalOf"
	EdgeDependsOn    EdgeType = "DependsOn"
	EdgeConflictsWith EdgeType = "ConflictsWith"
	EdgeEnables      EdgeType = "Enables"
	EdgeRelatedTo    EdgeType = "RelatedTo"
	EdgeTriggeredBy  EdgeType = "TriggeredBy"
	EdgeBlocks       EdgeType = "Blocks"
)

// Edge connects two Intents by ID (spec §3 `Edge{from,to,edge_type,weight?,metadata?}`).
type Edge struct {
	From     string
	To       string
	Type     EdgeType
	Weight   float64
	Metadata map[string]string
}
