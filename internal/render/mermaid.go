package render

import (
	"fmt"
	"strings"

	"github.com/kms7530/rust-grapher/internal/calls"
	"github.com/kms7530/rust-grapher/internal/deps"
)

func mermaidHeader(b *strings.Builder, opts Options) {
	if !opts.NoFence {
		b.WriteString("```mermaid\n")
	}
	fmt.Fprintf(b, "flowchart %s\n", opts.direction())
	switch opts.Theme {
	case ThemeDark:
		b.WriteString("    %%{init: {'theme': 'dark'}}%%\n")
	case ThemeLight:
		b.WriteString("    %%{init: {'theme': 'default'}}%%\n")
	}
}

func mermaidFooter(b *strings.Builder, opts Options) {
	for _, h := range opts.Highlight {
		fmt.Fprintf(b, "    style %s fill:#f9f,stroke:#333,stroke-width:4px\n", ident(h))
	}
	if !opts.NoFence {
		b.WriteString("```\n")
	}
}

type mermaidGroup struct {
	id, title, arrow string
	edges            [][2]string
}

func depsMermaid(g *deps.Graph, opts Options) string {
	groups := []*mermaidGroup{
		{id: "normal", title: "Dependencies", arrow: "-->"},
		{id: "dev", title: "Dev Dependencies", arrow: "-.->"},
		{id: "build", title: "Build Dependencies", arrow: "==>"},
	}
	for _, e := range g.Edges() {
		from, to, kind := g.Edge(e)
		grp := groups[0]
		switch kind {
		case deps.Dev:
			grp = groups[1]
		case deps.Build:
			grp = groups[2]
		}
		grp.edges = append(grp.edges, [2]string{depLabel(g.Node(from), opts), depLabel(g.Node(to), opts)})
	}

	var b strings.Builder
	mermaidHeader(&b, opts)
	for _, grp := range groups {
		if len(grp.edges) == 0 {
			continue
		}
		indent := "    "
		if opts.GroupByKind {
			fmt.Fprintf(&b, "    subgraph %s[\"%s\"]\n", grp.id, grp.title)
			indent = "        "
		}
		for _, edge := range grp.edges {
			fmt.Fprintf(&b, "%s%s %s %s\n", indent, edge[0], grp.arrow, edge[1])
		}
		if opts.GroupByKind {
			b.WriteString("    end\n")
		}
	}
	mermaidFooter(&b, opts)
	return b.String()
}

func callsMermaid(g *calls.Graph, opts Options) string {
	var b strings.Builder
	mermaidHeader(&b, opts)
	for _, e := range g.Edges() {
		from, to, kind := g.Edge(e)
		arrow := "-->"
		if kind == calls.Method {
			arrow = "-.->"
		}
		fmt.Fprintf(&b, "    %s %s %s\n", callLabel(g.Node(from), opts), arrow, callLabel(g.Node(to), opts))
	}
	mermaidFooter(&b, opts)
	return b.String()
}
