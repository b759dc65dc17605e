package deps

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kms7530/rust-grapher/internal/graph"
	"github.com/kms7530/rust-grapher/internal/pattern"
)

var tracer = otel.Tracer("rust-grapher/deps")

// Result is a built dependency graph.
type Result struct {
	Graph *Graph

	// Visited holds the ids of the packages whose dependencies were examined.
	// Packages that only appear as a dependency target are nodes of Graph
	// but are not visited.
	Visited map[string]bool
}

// builder holds the state of one Build call.
type builder struct {
	opts     Options
	packages map[string]*Package
	members  map[string]bool
	resolve  map[string][]Dependency

	g       *Graph
	visited map[string]bool
}

// frame is one package on the traversal stack. next is the index of the next
// dependency to examine, or -1 before the package has been entered.
type frame struct {
	id    string
	depth int
	node  graph.NodeID
	next  int
}

// BuildGraph traverses md from roots and returns the dependency graph.
//
// The traversal is a depth-first pre-order walk driven by an explicit stack:
// each dependency is fully explored before the next sibling is examined. The
// visited set is shared by all roots, so a package is descended into at most
// once per run even when it is reachable from several roots.
func BuildGraph(ctx context.Context, md *Metadata, roots []string, opts Options) (*Result, error) {
	if md.Resolve == nil {
		return nil, ErrNoResolve
	}
	if len(roots) == 0 {
		return nil, ErrNoPackages
	}

	_, span := tracer.Start(ctx, "deps.BuildGraph")
	defer span.End()

	b := &builder{
		opts:     opts,
		packages: make(map[string]*Package, len(md.Packages)),
		members:  make(map[string]bool, len(md.WorkspaceMembers)),
		resolve:  md.Resolve,
		g:        graph.New[string, Node, Kind](),
		visited:  make(map[string]bool),
	}
	for i := range md.Packages {
		b.packages[md.Packages[i].ID] = &md.Packages[i]
	}
	for _, id := range md.WorkspaceMembers {
		b.members[id] = true
	}

	for _, root := range roots {
		if _, ok := b.packages[root]; !ok {
			slog.Debug("skipping unknown root package", slog.String("id", root))
			continue
		}
		b.walk(root)
	}

	span.SetAttributes(
		attribute.Int("nodes", b.g.Len()),
		attribute.Int("edges", b.g.EdgeCount()),
		attribute.Int("visited", len(b.visited)),
	)
	slog.Debug("dependency graph built",
		slog.Int("roots", len(roots)),
		slog.Int("nodes", b.g.Len()),
		slog.Int("edges", b.g.EdgeCount()),
		slog.Int("visited", len(b.visited)))

	return &Result{Graph: b.g, Visited: b.visited}, nil
}

func (b *builder) walk(root string) {
	stack := []frame{{id: root, next: -1}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next < 0 {
			node, ok := b.enter(top.id, top.depth)
			if !ok || (b.opts.NoTransitive && top.depth >= 1) {
				stack = stack[:len(stack)-1]
				continue
			}
			top.node = node
			top.next = 0
		}

		deps := b.resolve[top.id]
		if top.next >= len(deps) {
			stack = stack[:len(stack)-1]
			continue
		}
		dep := deps[top.next]
		top.next++

		if b.link(top.node, dep) {
			stack = append(stack, frame{id: dep.ID, depth: top.depth + 1, next: -1})
		}
	}
}

// enter applies the per-package filters and records the package as a node.
func (b *builder) enter(id string, depth int) (graph.NodeID, bool) {
	pkg := b.packages[id]

	if b.opts.MaxDepth > 0 && depth > b.opts.MaxDepth {
		return 0, false
	}
	if b.visited[id] {
		return 0, false
	}
	if pattern.MatchAny(pkg.Name, b.opts.Exclude) {
		return 0, false
	}
	// Roots bypass the include filter.
	if len(b.opts.Include) > 0 && !pattern.MatchAny(pkg.Name, b.opts.Include) && depth > 0 {
		return 0, false
	}
	if b.opts.WorkspaceOnly && !b.members[id] && depth > 0 {
		return 0, false
	}

	b.visited[id] = true
	return b.node(pkg), true
}

// link records the edge from parent to dep and reports whether dep should be
// descended into.
func (b *builder) link(parent graph.NodeID, dep Dependency) bool {
	kind := dep.Kind()
	if b.opts.NoDev && kind == Dev {
		return false
	}
	if b.opts.NoBuild && kind == Build {
		return false
	}

	pkg, ok := b.packages[dep.ID]
	if !ok {
		return false
	}
	if pattern.MatchAny(pkg.Name, b.opts.Exclude) {
		return false
	}
	if b.opts.WorkspaceOnly && !b.members[dep.ID] {
		return false
	}

	child := b.node(pkg)
	b.g.AddEdge(parent, child, kind)
	return true
}

// node returns the graph node for pkg, creating it on first sight. Nodes are
// keyed by package id, so every dependent shares one node per package and
// Options.Dedup needs no separate handling here.
func (b *builder) node(pkg *Package) graph.NodeID {
	return b.g.Insert(pkg.ID, Node{
		Name:      pkg.Name,
		Version:   pkg.Version,
		Workspace: b.members[pkg.ID],
	})
}
