// Package calls assembles function call graphs from extracted source facts.
package calls

import "github.com/kms7530/rust-grapher/internal/graph"

// Kind is the syntactic form of a call.
type Kind int

const (
	// Direct is a call through a plain or path-qualified name.
	Direct Kind = iota
	// Method is a call through a receiver, resolved by method name only.
	Method
)

// String returns the lower-case name of k.
func (k Kind) String() string {
	if k == Method {
		return "method"
	}
	return "direct"
}

// Function is a function or method declaration found in a source file.
type Function struct {
	Name          string
	QualifiedName string
	Public        bool
	Async         bool
	Signature     string
	File          string
	Line          int
}

// Call is a call site inside the body of Caller. Callee is the called name as
// written: a short name, or a path such as "utils::helper".
type Call struct {
	Caller string
	Callee string
	Kind   Kind
}

// Node is a function in the call graph.
type Node struct {
	Name          string
	QualifiedName string
	File          string
	Line          int
	Public        bool
	Async         bool

	// Signature is empty unless signatures were requested.
	Signature string
}

// Graph is a call graph: qualified-name keys, Node values, Kind edges.
type Graph = graph.Graph[string, Node, Kind]

// Options controls which functions become nodes.
type Options struct {
	PublicOnly bool
	// Exclude drops functions whose short or qualified name matches.
	Exclude        []string
	ShowSignatures bool
}
