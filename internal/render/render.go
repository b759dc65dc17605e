// Package render turns finished dependency and call graphs into Mermaid, DOT
// or JSON text.
package render

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kms7530/rust-grapher/internal/calls"
	"github.com/kms7530/rust-grapher/internal/deps"
	"github.com/kms7530/rust-grapher/internal/pattern"
)

// ErrUnknownFormat is returned for an output format no renderer handles.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output format.
type Format string

const (
	Mermaid Format = "mermaid"
	DOT     Format = "dot"
	JSON    Format = "json"
)

// Theme selects colours for Mermaid and DOT output.
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeLight   Theme = "light"
	ThemeDark    Theme = "dark"
)

// Options controls rendering.
type Options struct {
	Format    Format `validate:"omitempty,oneof=mermaid dot json"`
	Direction string `validate:"omitempty,oneof=LR RL TB BT TD"`
	Theme     Theme  `validate:"omitempty,oneof=default light dark"`

	// NoFence omits the ```mermaid fence.
	NoFence bool
	// GroupByKind puts dependency edges into one Mermaid subgraph per kind.
	GroupByKind bool
	// Highlight lists node names to emphasise.
	Highlight []string

	ShowVersions   bool
	ShowSignatures bool
}

func (o Options) direction() string {
	if o.Direction == "" {
		return "LR"
	}
	return o.Direction
}

func (o Options) highlighted(name string) bool {
	return slices.Contains(o.Highlight, name)
}

// Deps renders a dependency graph.
func Deps(g *deps.Graph, opts Options) (string, error) {
	switch opts.Format {
	case Mermaid, "":
		return depsMermaid(g, opts), nil
	case DOT:
		return depsDOT(g, opts), nil
	case JSON:
		return depsJSON(g, opts), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
}

// Calls renders a call graph.
func Calls(g *calls.Graph, opts Options) (string, error) {
	switch opts.Format {
	case Mermaid, "":
		return callsMermaid(g, opts), nil
	case DOT:
		return callsDOT(g, opts), nil
	case JSON:
		return callsJSON(g, opts), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
}

var identReplacer = strings.NewReplacer("/", "_", "@", "_", ":", "_", " ", "_")

// ident is the node identifier for name. Beyond the usual sanitizing it
// replaces characters that Go import paths carry.
func ident(name string) string {
	return identReplacer.Replace(pattern.Sanitize(name))
}

func depLabel(n deps.Node, opts Options) string {
	label := ident(n.Name)
	if opts.ShowVersions {
		label += "_" + strings.ReplaceAll(n.Version, ".", "_")
	}
	return label
}

var signatureReplacer = strings.NewReplacer("(", "_", ")", "_", ",", "_", " ", "_", "-", "_", ">", "_")

func callLabel(n calls.Node, opts Options) string {
	if opts.ShowSignatures && n.Signature != "" {
		return ident(signatureReplacer.Replace(n.Signature))
	}
	return ident(n.Name)
}
