package parse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/kms7530/rust-grapher/internal/calls"
)

var errSyntax = errors.New("source contains syntax errors")

// rustWalker carries the naming scope while walking a Rust syntax tree.
type rustWalker struct {
	src   []byte
	file  string
	facts *Facts

	mods []string
	// impl is the self type of the enclosing impl block, empty outside one
	// or when the type is not a path.
	impl string
	// caller is the qualified name of the enclosing item-level function.
	caller string
}

func parseRust(ctx context.Context, rel string, src []byte) (*Facts, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil, errSyntax
	}

	w := &rustWalker{src: src, file: rel, facts: &Facts{}}
	w.walk(root)
	return w.facts, nil
}

func (w *rustWalker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

func (w *rustWalker) qualify(name string) string {
	parts := append([]string{}, w.mods...)
	if w.impl != "" {
		parts = append(parts, w.impl)
	}
	return strings.Join(append(parts, name), "::")
}

func (w *rustWalker) walk(n *sitter.Node) {
	switch n.Type() {
	case "mod_item":
		body := n.ChildByFieldName("body")
		name := n.ChildByFieldName("name")
		if body == nil || name == nil {
			return
		}
		w.mods = append(w.mods, w.text(name))
		w.children(body)
		w.mods = w.mods[:len(w.mods)-1]
		return

	case "impl_item":
		old := w.impl
		w.impl = ""
		if t := n.ChildByFieldName("type"); t != nil {
			w.impl = w.typeName(t)
		}
		w.children(n)
		w.impl = old
		return

	case "trait_item":
		return

	case "function_item":
		w.function(n)
		return

	case "call_expression":
		w.call(n)

	case "macro_invocation":
		return
	}
	w.children(n)
}

func (w *rustWalker) children(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
}

func (w *rustWalker) function(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	qualified := w.qualify(name)

	fn := calls.Function{
		Name:          name,
		QualifiedName: qualified,
		Signature:     w.signature(n, name),
		File:          w.file,
		Line:          int(n.StartPoint().Row) + 1,
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "visibility_modifier":
			fn.Public = w.text(child) == "pub"
		case "function_modifiers":
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.Child(j).Type() == "async" {
					fn.Async = true
				}
			}
		}
	}
	w.facts.Functions = append(w.facts.Functions, fn)

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	if w.caller != "" {
		w.children(body)
		return
	}
	w.caller = qualified
	w.children(body)
	w.caller = ""
}

// signature renders "fn name(params) -> ret".
func (w *rustWalker) signature(n *sitter.Node, name string) string {
	var params []string
	if list := n.ChildByFieldName("parameters"); list != nil {
		for i := 0; i < int(list.NamedChildCount()); i++ {
			p := list.NamedChild(i)
			if p.Type() == "attribute_item" {
				continue
			}
			params = append(params, strings.Join(strings.Fields(w.text(p)), " "))
		}
	}
	sig := "fn " + name + "(" + strings.Join(params, ", ") + ")"
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		sig += " -> " + strings.Join(strings.Fields(w.text(ret)), " ")
	}
	return sig
}

// typeName returns the last path segment of an impl self type.
func (w *rustWalker) typeName(t *sitter.Node) string {
	switch t.Type() {
	case "type_identifier", "primitive_type":
		return w.text(t)
	case "scoped_type_identifier":
		if name := t.ChildByFieldName("name"); name != nil {
			return w.text(name)
		}
	case "generic_type":
		if inner := t.ChildByFieldName("type"); inner != nil {
			return w.typeName(inner)
		}
	}
	return ""
}

func (w *rustWalker) call(n *sitter.Node) {
	if w.caller == "" {
		return
	}
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	if fn.Type() == "generic_function" {
		if inner := fn.ChildByFieldName("function"); inner != nil {
			fn = inner
		}
	}

	if fn.Type() == "field_expression" {
		field := fn.ChildByFieldName("field")
		if field == nil || field.Type() != "field_identifier" {
			return
		}
		w.facts.Calls = append(w.facts.Calls, calls.Call{Caller: w.caller, Callee: w.text(field), Kind: calls.Method})
		return
	}
	if path, ok := w.path(fn); ok {
		w.facts.Calls = append(w.facts.Calls, calls.Call{Caller: w.caller, Callee: path, Kind: calls.Direct})
	}
}

// path joins the identifiers of a path expression with "::", dropping
// generic arguments.
func (w *rustWalker) path(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "identifier", "type_identifier", "self", "super", "crate":
		return w.text(n), true
	case "scoped_identifier", "scoped_type_identifier":
		name := n.ChildByFieldName("name")
		if name == nil {
			return "", false
		}
		prefix := n.ChildByFieldName("path")
		if prefix == nil {
			return w.text(name), true
		}
		head, ok := w.path(prefix)
		if !ok {
			return "", false
		}
		return head + "::" + w.text(name), true
	case "generic_type", "generic_function":
		field := "type"
		if n.Type() == "generic_function" {
			field = "function"
		}
		if inner := n.ChildByFieldName(field); inner != nil {
			return w.path(inner)
		}
	case "bracketed_type":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "qualified_type" {
				if alias := child.ChildByFieldName("alias"); alias != nil {
					return w.path(alias)
				}
			}
		}
	}
	if n.NamedChildCount() == 0 {
		return w.text(n), true
	}
	return "", false
}
