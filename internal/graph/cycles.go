package graph

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Cycles returns the strongly connected components of g that contain more
// than one node, i.e. the groups of nodes that reach each other through a
// cycle. Members are sorted by handle and components by their first member.
func Cycles[K comparable, N any, E any](g *Graph[K, N, E]) [][]NodeID {
	dg := simple.NewDirectedGraph()
	for _, id := range g.Nodes() {
		dg.AddNode(simple.Node(int64(id)))
	}
	for _, eid := range g.Edges() {
		from, to, _ := g.Edge(eid)
		if from == to {
			continue
		}
		dg.SetEdge(dg.NewEdge(simple.Node(int64(from)), simple.Node(int64(to))))
	}

	var out [][]NodeID
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		members := make([]NodeID, 0, len(scc))
		for _, n := range scc {
			members = append(members, NodeID(n.ID()))
		}
		slices.Sort(members)
		out = append(out, members)
	}
	slices.SortFunc(out, func(a, b []NodeID) int { return int(a[0]) - int(b[0]) })
	return out
}
