package graph

import "fmt"

// Focus keeps only the nodes within maxDepth hops of any seed, following
// edges in both directions, and removes everything else. A maxDepth of zero
// means unlimited, which keeps the weakly connected components of the seeds.
//
// The walk is a breadth-first search started from all seeds at once, so the
// depth recorded for a node is its distance to the nearest seed and the
// retained set does not depend on seed order. It returns the number of nodes
// removed.
func Focus[K comparable, N any, E any](g *Graph[K, N, E], seeds []NodeID, maxDepth int) (int, error) {
	depth := make(map[NodeID]int, len(seeds))
	queue := make([]NodeID, 0, len(seeds))
	for _, s := range seeds {
		if !g.Contains(s) {
			return 0, fmt.Errorf("focus seed %d: %w", s, ErrNodeNotFound)
		}
		if _, seen := depth[s]; seen {
			continue
		}
		depth[s] = 0
		queue = append(queue, s)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		d := depth[cur]
		if maxDepth > 0 && d >= maxDepth {
			continue
		}
		for _, next := range g.Successors(cur) {
			if _, seen := depth[next]; !seen {
				depth[next] = d + 1
				queue = append(queue, next)
			}
		}
		for _, next := range g.Predecessors(cur) {
			if _, seen := depth[next]; !seen {
				depth[next] = d + 1
				queue = append(queue, next)
			}
		}
	}

	removed := g.Retain(func(id NodeID) bool {
		_, ok := depth[id]
		return ok
	})
	return removed, nil
}

// FocusWhere seeds Focus with every node for which match returns true. When
// nothing matches the graph is left as it is and FocusWhere reports false.
func FocusWhere[K comparable, N any, E any](g *Graph[K, N, E], match func(K, N) bool, maxDepth int) (bool, error) {
	var seeds []NodeID
	for _, id := range g.Nodes() {
		if match(g.Key(id), g.Node(id)) {
			seeds = append(seeds, id)
		}
	}
	if len(seeds) == 0 {
		return false, nil
	}
	if _, err := Focus(g, seeds, maxDepth); err != nil {
		return false, err
	}
	return true, nil
}
