package render

import (
	"encoding/json"

	"github.com/kms7530/rust-grapher/internal/calls"
	"github.com/kms7530/rust-grapher/internal/deps"
)

// Fields are declared in alphabetical key order.

type jsonEdge struct {
	From string `json:"from"`
	Kind string `json:"kind"`
	To   string `json:"to"`
}

type jsonDepNode struct {
	Highlighted bool   `json:"highlighted"`
	ID          string `json:"id"`
	Workspace   bool   `json:"is_workspace_member"`
	Name        string `json:"name"`
	Version     string `json:"version"`
}

type jsonCallNode struct {
	File          string `json:"file"`
	Highlighted   bool   `json:"highlighted"`
	ID            string `json:"id"`
	Async         bool   `json:"is_async"`
	Public        bool   `json:"is_public"`
	Line          int    `json:"line"`
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	Signature     string `json:"signature,omitempty"`
}

type jsonGraph[N any] struct {
	Edges []jsonEdge `json:"edges"`
	Nodes []N        `json:"nodes"`
}

func marshal(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func depsJSON(g *deps.Graph, opts Options) string {
	out := jsonGraph[jsonDepNode]{Edges: []jsonEdge{}, Nodes: []jsonDepNode{}}
	for _, id := range g.Nodes() {
		n := g.Node(id)
		out.Nodes = append(out.Nodes, jsonDepNode{
			Highlighted: opts.highlighted(n.Name),
			ID:          ident(n.Name),
			Workspace:   n.Workspace,
			Name:        n.Name,
			Version:     n.Version,
		})
	}
	for _, e := range g.Edges() {
		from, to, kind := g.Edge(e)
		out.Edges = append(out.Edges, jsonEdge{From: ident(g.Node(from).Name), Kind: kind.String(), To: ident(g.Node(to).Name)})
	}
	return marshal(out)
}

func callsJSON(g *calls.Graph, opts Options) string {
	out := jsonGraph[jsonCallNode]{Edges: []jsonEdge{}, Nodes: []jsonCallNode{}}
	for _, id := range g.Nodes() {
		n := g.Node(id)
		out.Nodes = append(out.Nodes, jsonCallNode{
			File:          n.File,
			Highlighted:   opts.highlighted(n.Name),
			ID:            ident(n.Name),
			Async:         n.Async,
			Public:        n.Public,
			Line:          n.Line,
			Name:          n.Name,
			QualifiedName: n.QualifiedName,
			Signature:     n.Signature,
		})
	}
	for _, e := range g.Edges() {
		from, to, kind := g.Edge(e)
		out.Edges = append(out.Edges, jsonEdge{From: ident(g.Node(from).Name), Kind: kind.String(), To: ident(g.Node(to).Name)})
	}
	return marshal(out)
}
