// Package deps builds package dependency graphs from resolved metadata.
package deps

import (
	"errors"

	"github.com/kms7530/rust-grapher/internal/graph"
)

var (
	// ErrNoPackages is returned when no root package can be resolved.
	ErrNoPackages = errors.New("no packages found")

	// ErrNoResolve is returned when the metadata carries no dependency
	// resolution section.
	ErrNoResolve = errors.New("no resolve data")
)

// Kind classifies a dependency edge.
type Kind int

const (
	// Normal is a regular dependency.
	Normal Kind = iota
	// Dev is only needed to build tests, examples or benchmarks.
	Dev
	// Build is only needed by the build process itself.
	Build
)

// String returns the lower-case name of k.
func (k Kind) String() string {
	switch k {
	case Dev:
		return "dev"
	case Build:
		return "build"
	default:
		return "normal"
	}
}

// Package is one resolved package.
type Package struct {
	ID      string
	Name    string
	Version string
}

// Dependency is a direct dependency of a package. Kinds lists the declared
// kinds in declaration order; the first one classifies the edge and an empty
// list means Normal.
type Dependency struct {
	ID    string
	Kinds []Kind
}

// Kind returns the kind used for the edge to d.
func (d Dependency) Kind() Kind {
	if len(d.Kinds) == 0 {
		return Normal
	}
	return d.Kinds[0]
}

// Metadata is the resolver output consumed by Build.
type Metadata struct {
	Packages         []Package
	WorkspaceMembers []string

	// Resolve maps a package id to its direct dependencies. A nil map means
	// the resolver produced no resolution data at all.
	Resolve map[string][]Dependency
}

// Node is a package in the dependency graph. Nodes are keyed by package id.
type Node struct {
	Name      string
	Version   string
	Workspace bool
}

// Graph is a dependency graph: package id keys, Node values, Kind edges.
type Graph = graph.Graph[string, Node, Kind]

// Options controls which packages and edges Build records.
type Options struct {
	// MaxDepth bounds the traversal depth below the roots; 0 is unlimited.
	MaxDepth int `validate:"gte=0"`

	NoDev   bool
	NoBuild bool

	// Exclude drops packages whose name matches any pattern.
	Exclude []string
	// Include keeps only non-root packages whose name matches a pattern.
	Include []string

	// WorkspaceOnly drops packages outside the workspace below the roots.
	WorkspaceOnly bool
	// NoTransitive records the roots' direct dependencies without
	// descending into them.
	NoTransitive bool

	// Dedup makes every dependent of a package share a single node. Nodes
	// are keyed by package id, so BuildGraph always behaves this way; see
	// builder.node.
	Dedup bool
}
