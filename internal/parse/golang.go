package parse

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"github.com/kms7530/rust-grapher/internal/calls"
)

func parseGo(rel string, src []byte) (*Facts, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, rel, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	pkg := file.Name.Name
	imports := importNames(file)
	facts := &Facts{}

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		name := fd.Name.Name
		qualified := pkg + "." + name
		if recv := receiverName(fd); recv != "" {
			qualified = pkg + "." + recv + "." + name
		}
		facts.Functions = append(facts.Functions, calls.Function{
			Name:          name,
			QualifiedName: qualified,
			Public:        ast.IsExported(name),
			Signature:     goSignature(fd),
			File:          rel,
			Line:          fset.Position(fd.Pos()).Line,
		})

		if fd.Body == nil {
			continue
		}
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			if callee, kind, ok := goCallee(call.Fun, imports); ok {
				facts.Calls = append(facts.Calls, calls.Call{Caller: qualified, Callee: callee, Kind: kind})
			}
			return true
		})
	}
	return facts, nil
}

// importNames returns the local names under which packages are imported.
func importNames(file *ast.File) map[string]bool {
	names := make(map[string]bool, len(file.Imports))
	for _, spec := range file.Imports {
		if spec.Name != nil {
			if spec.Name.Name != "_" && spec.Name.Name != "." {
				names[spec.Name.Name] = true
			}
			continue
		}
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		names[defaultImportName(p)] = true
	}
	return names
}

// defaultImportName guesses the package name of an import path: the last
// element, skipping a major version suffix and cutting ".vN" and "go-".
func defaultImportName(p string) string {
	elems := strings.Split(p, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && isMajorVersion(name) {
		name = elems[len(elems)-2]
	}
	name, _, _ = strings.Cut(name, ".")
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "")
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

func receiverName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	t := fd.Recv.List[0].Type
	for {
		switch e := t.(type) {
		case *ast.StarExpr:
			t = e.X
		case *ast.ParenExpr:
			t = e.X
		case *ast.IndexExpr:
			t = e.X
		case *ast.IndexListExpr:
			t = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func goCallee(fun ast.Expr, imports map[string]bool) (string, calls.Kind, bool) {
	switch e := ast.Unparen(fun).(type) {
	case *ast.Ident:
		return e.Name, calls.Direct, true
	case *ast.SelectorExpr:
		if x, ok := e.X.(*ast.Ident); ok && imports[x.Name] {
			return x.Name + "." + e.Sel.Name, calls.Direct, true
		}
		return e.Sel.Name, calls.Method, true
	case *ast.IndexExpr:
		return goCallee(e.X, imports)
	case *ast.IndexListExpr:
		return goCallee(e.X, imports)
	}
	return "", 0, false
}

// goSignature renders "func (recv) Name(params) results".
func goSignature(fd *ast.FuncDecl) string {
	var b strings.Builder
	b.WriteString("func ")
	if fd.Recv != nil {
		b.WriteString("(" + fieldList(fd.Recv) + ") ")
	}
	b.WriteString(fd.Name.Name)
	if fd.Type.TypeParams != nil {
		b.WriteString("[" + fieldList(fd.Type.TypeParams) + "]")
	}
	b.WriteString("(" + fieldList(fd.Type.Params) + ")")

	if res := fd.Type.Results; res != nil && len(res.List) > 0 {
		if len(res.List) == 1 && len(res.List[0].Names) == 0 {
			b.WriteString(" " + types.ExprString(res.List[0].Type))
		} else {
			b.WriteString(" (" + fieldList(res) + ")")
		}
	}
	return b.String()
}

func fieldList(fl *ast.FieldList) string {
	if fl == nil {
		return ""
	}
	parts := make([]string, 0, len(fl.List))
	for _, f := range fl.List {
		typ := types.ExprString(f.Type)
		if len(f.Names) == 0 {
			parts = append(parts, typ)
			continue
		}
		names := make([]string, 0, len(f.Names))
		for _, n := range f.Names {
			names = append(names, n.Name)
		}
		parts = append(parts, strings.Join(names, ", ")+" "+typ)
	}
	return strings.Join(parts, ", ")
}
