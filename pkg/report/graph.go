package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/simonhull/firebird-suite/flock/pkg/deps"
)

// GraphIndent is the indentation of the graph file.
const GraphIndent = "    "

// MarshalGraph encodes g as indented JSON with a trailing newline. Empty
// graphs encode as empty arrays, never null.
func MarshalGraph(g *deps.Graph) ([]byte, error) {
	out := deps.Graph{Nodes: []deps.Node{}, Links: []deps.Edge{}}
	if g != nil {
		out.Nodes = append(out.Nodes, g.Nodes...)
		out.Links = append(out.Links, g.Links...)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", GraphIndent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes g to w as produced by MarshalGraph.
func WriteGraph(w io.Writer, g *deps.Graph) error {
	data, err := MarshalGraph(g)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
