package deps

import (
	"context"

	"github.com/kms7530/rust-grapher/internal/graph"
	"github.com/kms7530/rust-grapher/internal/pattern"
)

// Focus reduces g to the packages within maxDepth hops of the packages named
// name (0 is unlimited). Names also match when they only differ in '-' versus
// '_' or '.', so "serde-json" finds "serde_json". It reports whether any
// package matched; without a match g is unchanged.
func Focus(ctx context.Context, g *Graph, name string, maxDepth int) (bool, error) {
	_, span := tracer.Start(ctx, "deps.Focus")
	defer span.End()

	want := pattern.Sanitize(name)
	return graph.FocusWhere(g, func(_ string, n Node) bool {
		return n.Name == name || pattern.Sanitize(n.Name) == want
	}, maxDepth)
}
