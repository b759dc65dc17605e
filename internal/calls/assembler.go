package calls

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kms7530/rust-grapher/internal/graph"
	"github.com/kms7530/rust-grapher/internal/pattern"
)

var tracer = otel.Tracer("rust-grapher/calls")

// Assemble builds the call graph for funcs and calls.
//
// Callees are resolved heuristically. A short name maps to the qualified name
// of the last function seen with that name; anything else is looked up as a
// qualified name verbatim. Calls whose target is not a node are dropped, as
// are self calls and repeated caller/callee pairs.
//
// Functions sharing a qualified name each get a node, but only the last one
// is reachable by name, so edges always attach to it.
func Assemble(ctx context.Context, funcs []Function, calls []Call, opts Options) *Graph {
	_, span := tracer.Start(ctx, "calls.Assemble")
	defer span.End()

	byShortName := make(map[string]string, len(funcs))
	for _, f := range funcs {
		byShortName[f.Name] = f.QualifiedName
	}

	g := graph.New[string, Node, Kind]()
	for _, f := range funcs {
		if opts.PublicOnly && !f.Public {
			continue
		}
		if pattern.MatchAny(f.Name, opts.Exclude) || pattern.MatchAny(f.QualifiedName, opts.Exclude) {
			continue
		}

		n := Node{
			Name:          f.Name,
			QualifiedName: f.QualifiedName,
			File:          f.File,
			Line:          f.Line,
			Public:        f.Public,
			Async:         f.Async,
		}
		if opts.ShowSignatures {
			n.Signature = f.Signature
		}
		g.Append(f.QualifiedName, n)
	}

	dropped := 0
	for _, c := range calls {
		target, ok := byShortName[c.Callee]
		if !ok {
			target = c.Callee
		}

		from, okFrom := g.Lookup(c.Caller)
		to, okTo := g.Lookup(target)
		if !okFrom || !okTo || from == to {
			dropped++
			continue
		}
		g.AddEdge(from, to, c.Kind)
	}

	span.SetAttributes(
		attribute.Int("nodes", g.Len()),
		attribute.Int("edges", g.EdgeCount()),
		attribute.Int("unresolved_calls", dropped),
	)
	slog.Debug("call graph assembled",
		slog.Int("functions", len(funcs)),
		slog.Int("calls", len(calls)),
		slog.Int("nodes", g.Len()),
		slog.Int("edges", g.EdgeCount()),
		slog.Int("unresolved_calls", dropped))

	return g
}

// Focus reduces g to the functions within maxDepth calls of the functions
// named name, in either direction (0 is unlimited). A function matches when
// its short name or qualified name equals name, or its qualified name ends in
// sep followed by name. It reports whether any function matched.
func Focus(ctx context.Context, g *Graph, name, sep string, maxDepth int) (bool, error) {
	_, span := tracer.Start(ctx, "calls.Focus")
	defer span.End()

	suffix := sep + name
	return graph.FocusWhere(g, func(_ string, n Node) bool {
		return n.Name == name || n.QualifiedName == name || strings.HasSuffix(n.QualifiedName, suffix)
	}, maxDepth)
}
