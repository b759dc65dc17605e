// Package graph provides the directed graph store shared by the dependency
// and call graphs, plus the reductions applied to it after building.
//
// Nodes live in an arena and are addressed by NodeID handles. A key index maps
// the caller's identity (a package id, a qualified function name) to the node
// handle. Edges are unique per ordered (from, to) pair. Removed nodes and edges
// are tombstoned, so handles of surviving nodes never change.
//
// A Graph is owned by a single goroutine and is not safe for concurrent use.
package graph

// NodeID is a handle to a node. Handles are dense, start at zero and are never
// reused within one Graph.
type NodeID int

// EdgeID is a handle to an edge.
type EdgeID int

type pair struct {
	from, to NodeID
}

type node[K comparable, N any] struct {
	key     K
	value   N
	out     []EdgeID
	in      []EdgeID
	removed bool
}

type edge[E any] struct {
	from, to NodeID
	value    E
	removed  bool
}

// Graph is a directed graph with keyed nodes of type N and edge labels of type E.
type Graph[K comparable, N any, E any] struct {
	nodes []node[K, N]
	edges []edge[E]
	index map[K]NodeID
	pairs map[pair]EdgeID

	liveNodes int
	liveEdges int
}

// New returns an empty graph.
func New[K comparable, N any, E any]() *Graph[K, N, E] {
	return &Graph[K, N, E]{
		index: make(map[K]NodeID),
		pairs: make(map[pair]EdgeID),
	}
}

// Insert returns the node stored under key, creating it with value when the
// key is unknown. Re-inserting an existing key never adds a node and leaves
// the stored value untouched.
func (g *Graph[K, N, E]) Insert(key K, value N) NodeID {
	if id, ok := g.index[key]; ok {
		return id
	}
	return g.Append(key, value)
}

// Append always creates a new node and points the index entry for key at it.
// An earlier node with the same key stays in the graph but can no longer be
// found through Lookup.
func (g *Graph[K, N, E]) Append(key K, value N) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node[K, N]{key: key, value: value})
	g.index[key] = id
	g.liveNodes++
	return id
}

// Lookup returns the node currently indexed under key.
func (g *Graph[K, N, E]) Lookup(key K) (NodeID, bool) {
	id, ok := g.index[key]
	return id, ok
}

// Contains reports whether id is a live node of g.
func (g *Graph[K, N, E]) Contains(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes) && !g.nodes[id].removed
}

// Node returns the value stored for id.
func (g *Graph[K, N, E]) Node(id NodeID) N {
	return g.nodes[id].value
}

// Key returns the key id was inserted with.
func (g *Graph[K, N, E]) Key(id NodeID) K {
	return g.nodes[id].key
}

// Len returns the number of live nodes.
func (g *Graph[K, N, E]) Len() int {
	return g.liveNodes
}

// EdgeCount returns the number of live edges.
func (g *Graph[K, N, E]) EdgeCount() int {
	return g.liveEdges
}

// Nodes returns the live nodes in insertion order.
func (g *Graph[K, N, E]) Nodes() []NodeID {
	ids := make([]NodeID, 0, g.liveNodes)
	for i := range g.nodes {
		if !g.nodes[i].removed {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

// AddEdge adds an edge from -> to labelled value. It returns false, leaving
// the graph unchanged, when the pair already has an edge (whatever its label)
// or when either endpoint is not a live node.
func (g *Graph[K, N, E]) AddEdge(from, to NodeID, value E) (EdgeID, bool) {
	if !g.Contains(from) || !g.Contains(to) {
		return 0, false
	}
	p := pair{from, to}
	if id, ok := g.pairs[p]; ok {
		return id, false
	}

	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, edge[E]{from: from, to: to, value: value})
	g.pairs[p] = id
	g.nodes[from].out = append(g.nodes[from].out, id)
	g.nodes[to].in = append(g.nodes[to].in, id)
	g.liveEdges++
	return id, true
}

// HasEdge reports whether an edge from -> to exists.
func (g *Graph[K, N, E]) HasEdge(from, to NodeID) bool {
	_, ok := g.pairs[pair{from, to}]
	return ok
}

// Edges returns the live edges in insertion order.
func (g *Graph[K, N, E]) Edges() []EdgeID {
	ids := make([]EdgeID, 0, g.liveEdges)
	for i := range g.edges {
		if !g.edges[i].removed {
			ids = append(ids, EdgeID(i))
		}
	}
	return ids
}

// Edge returns the endpoints and label of id.
func (g *Graph[K, N, E]) Edge(id EdgeID) (from, to NodeID, value E) {
	e := g.edges[id]
	return e.from, e.to, e.value
}

// Successors returns the targets of the live outgoing edges of id.
func (g *Graph[K, N, E]) Successors(id NodeID) []NodeID {
	return g.neighbors(g.nodes[id].out, func(e edge[E]) NodeID { return e.to })
}

// Predecessors returns the sources of the live incoming edges of id.
func (g *Graph[K, N, E]) Predecessors(id NodeID) []NodeID {
	return g.neighbors(g.nodes[id].in, func(e edge[E]) NodeID { return e.from })
}

func (g *Graph[K, N, E]) neighbors(ids []EdgeID, end func(edge[E]) NodeID) []NodeID {
	out := make([]NodeID, 0, len(ids))
	for _, eid := range ids {
		e := g.edges[eid]
		if !e.removed {
			out = append(out, end(e))
		}
	}
	return out
}

// Remove deletes id and every edge incident to it. The index entry for its
// key is dropped when it still points at id.
func (g *Graph[K, N, E]) Remove(id NodeID) {
	if !g.Contains(id) {
		return
	}
	n := &g.nodes[id]
	for _, eid := range n.out {
		g.removeEdge(eid)
	}
	for _, eid := range n.in {
		g.removeEdge(eid)
	}
	n.removed = true
	n.out, n.in = nil, nil
	if cur, ok := g.index[n.key]; ok && cur == id {
		delete(g.index, n.key)
	}
	g.liveNodes--
}

func (g *Graph[K, N, E]) removeEdge(id EdgeID) {
	e := &g.edges[id]
	if e.removed {
		return
	}
	e.removed = true
	delete(g.pairs, pair{e.from, e.to})
	g.liveEdges--
}

// Retain removes every live node for which keep returns false.
func (g *Graph[K, N, E]) Retain(keep func(NodeID) bool) int {
	removed := 0
	for _, id := range g.Nodes() {
		if !keep(id) {
			g.Remove(id)
			removed++
		}
	}
	return removed
}
