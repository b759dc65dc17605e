package render

import (
	"fmt"
	"strings"

	"github.com/kms7530/rust-grapher/internal/calls"
	"github.com/kms7530/rust-grapher/internal/deps"
	"github.com/kms7530/rust-grapher/internal/pattern"
)

func dotHeader(b *strings.Builder, name string, opts Options) {
	fmt.Fprintf(b, "digraph %s {\n", name)
	fmt.Fprintf(b, "    rankdir=%s;\n", opts.direction())
	b.WriteString("    node [shape=box, style=rounded];\n")
	switch opts.Theme {
	case ThemeDark:
		b.WriteString("    bgcolor=\"#1e1e1e\";\n")
		b.WriteString("    node [fontcolor=white, color=white];\n")
		b.WriteString("    edge [color=white];\n")
	case ThemeLight:
		b.WriteString("    bgcolor=white;\n")
	}
}

func highlightAttrs(attrs []string) []string {
	return append(attrs, `fillcolor="#ff99ff"`, `style="filled,rounded"`)
}

func depsDOT(g *deps.Graph, opts Options) string {
	var b strings.Builder
	dotHeader(&b, "dependencies", opts)

	defined := make(map[string]bool)
	for _, id := range g.Nodes() {
		n := g.Node(id)
		name := ident(n.Name)
		if defined[name] {
			continue
		}
		defined[name] = true

		label := pattern.Sanitize(n.Name)
		if opts.ShowVersions {
			label += "_" + strings.ReplaceAll(n.Version, ".", "_")
		}
		attrs := []string{fmt.Sprintf("label=%q", strings.ReplaceAll(label, "_", "-"))}
		if opts.highlighted(n.Name) {
			attrs = highlightAttrs(attrs)
		}
		if n.Workspace {
			attrs = append(attrs, "penwidth=2")
		}
		fmt.Fprintf(&b, "    %s [%s];\n", name, strings.Join(attrs, ", "))
	}

	for _, e := range g.Edges() {
		from, to, kind := g.Edge(e)
		style := ""
		switch kind {
		case deps.Dev:
			style = " [style=dashed, color=blue]"
		case deps.Build:
			style = " [style=bold, color=green]"
		}
		fmt.Fprintf(&b, "    %s -> %s%s;\n", ident(g.Node(from).Name), ident(g.Node(to).Name), style)
	}

	b.WriteString("}\n")
	return b.String()
}

func callsDOT(g *calls.Graph, opts Options) string {
	var b strings.Builder
	dotHeader(&b, "call_graph", opts)

	defined := make(map[string]bool)
	for _, id := range g.Nodes() {
		n := g.Node(id)
		name := ident(n.Name)
		if defined[name] {
			continue
		}
		defined[name] = true

		label := n.Name
		if opts.ShowSignatures && n.Signature != "" {
			label = n.Signature
		}
		attrs := []string{`label="` + strings.ReplaceAll(label, `"`, `\"`) + `"`}
		if opts.highlighted(n.Name) {
			attrs = highlightAttrs(attrs)
		}
		if n.Public {
			attrs = append(attrs, "penwidth=2")
		}
		if n.Async {
			attrs = append(attrs, "color=blue")
		}
		fmt.Fprintf(&b, "    %s [%s];\n", name, strings.Join(attrs, ", "))
	}

	for _, e := range g.Edges() {
		from, to, kind := g.Edge(e)
		style := ""
		if kind == calls.Method {
			style = " [style=dashed]"
		}
		fmt.Fprintf(&b, "    %s -> %s%s;\n", ident(g.Node(from).Name), ident(g.Node(to).Name), style)
	}

	b.WriteString("}\n")
	return b.String()
}
