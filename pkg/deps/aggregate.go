package deps

type edgeKey struct {
	source string
	target string
}

// Aggregator collapses individual references into weighted project edges.
// It is not safe for concurrent use; the core feeds it from a single pass.
type Aggregator struct {
	nodes     []Node
	nodeIndex map[string]struct{}
	links     []*Edge
	edgeIndex map[edgeKey]*Edge
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		nodeIndex: make(map[string]struct{}),
		edgeIndex: make(map[edgeKey]*Edge),
	}
}

// AddNode records a project as a node. Repeated calls are no-ops.
func (a *Aggregator) AddNode(project string) {
	if _, ok := a.nodeIndex[project]; ok {
		return
	}
	a.nodeIndex[project] = struct{}{}
	a.nodes = append(a.nodes, Node{ID: project, Title: project})
}

// AddReference counts one reference site in target to an export of source.
// Self-references are dropped and reported as false.
func (a *Aggregator) AddReference(source, target string) bool {
	if source == target {
		return false
	}
	a.AddNode(target)

	key := edgeKey{source: source, target: target}
	edge, ok := a.edgeIndex[key]
	if !ok {
		edge = &Edge{Source: source, Target: target}
		a.edgeIndex[key] = edge
		a.links = append(a.links, edge)
	}
	edge.Value++
	return true
}

// AddUsage folds one symbol's references into the graph. The exporting
// project becomes a node even when nothing references the symbol.
func (a *Aggregator) AddUsage(u *SymbolUsage) {
	a.AddNode(u.Symbol.Project)
	for _, ref := range u.References {
		a.AddReference(u.Symbol.Project, ref.Project)
	}
}

// Graph returns a snapshot of the accumulated graph in first-seen order.
func (a *Aggregator) Graph() *Graph {
	g := &Graph{
		Nodes: make([]Node, len(a.nodes)),
		Links: make([]Edge, 0, len(a.links)),
	}
	copy(g.Nodes, a.nodes)
	for _, e := range a.links {
		g.Links = append(g.Links, *e)
	}
	return g
}
