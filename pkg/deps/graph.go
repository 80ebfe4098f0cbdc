package deps

// Node is a project in the dependency graph. ID is the project name and is
// the node's identity; Title is carried for renderers.
type Node struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Edge says that Target references exports of Source Value times.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int    `json:"value"`
}

// Graph is the project-level dependency graph of one run.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Edge `json:"links"`
}

// HasNode reports whether a project appears in the graph.
func (g *Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Edge returns the edge for an ordered project pair.
func (g *Graph) Edge(source, target string) (Edge, bool) {
	for _, e := range g.Links {
		if e.Source == source && e.Target == target {
			return e, true
		}
	}
	return Edge{}, false
}
