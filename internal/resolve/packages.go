package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/kms7530/rust-grapher/internal/deps"
)

// PackagesOptions configures Packages.
type PackagesOptions struct {
	// Dir is the directory the go command runs in.
	Dir string
	// Patterns are package patterns; empty means "./...".
	Patterns []string
	// Std keeps standard library packages.
	Std bool
}

// Packages loads the packages of the module in opts.Dir, including their test
// variants, and reports import edges. Imports made only by a package's tests
// are Dev dependencies.
func Packages(ctx context.Context, opts PackagesOptions) (*deps.Metadata, error) {
	ctx, span := tracer.Start(ctx, "resolve.Packages")
	defer span.End()

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedModule | packages.NeedImports | packages.NeedDeps,
		Dir:     opts.Dir,
		Tests:   true,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if n := countErrors(pkgs); n > 0 {
		slog.Warn("package errors, continuing", slog.Int("errors", n))
	}

	md := fromPackages(pkgs, opts.Std)
	if len(md.Packages) == 0 {
		return nil, deps.ErrNoResolve
	}
	slog.Debug("package graph resolved",
		slog.Int("packages", len(md.Packages)),
		slog.Int("members", len(md.WorkspaceMembers)))
	return md, nil
}

func countErrors(pkgs []*packages.Package) int {
	n := 0
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, err := range p.Errors {
			slog.Debug("package error", slog.String("package", p.ID), slog.String("error", err.Error()))
			n++
		}
	})
	return n
}

// fromPackages converts a loaded package graph into dependency metadata.
// Packages are reported in import path order.
func fromPackages(roots []*packages.Package, std bool) *deps.Metadata {
	base := make(map[string]*packages.Package)
	tests := make(map[string][]*packages.Package)
	packages.Visit(roots, nil, func(p *packages.Package) {
		switch {
		case strings.HasSuffix(p.ID, ".test"):
			// generated test main
		case p.ForTest != "":
			// Only the package's own test variants count. Dependencies
			// recompiled for its tests, such as "q [p.test]", keep the
			// edges of their plain variant.
			if p.PkgPath == p.ForTest || p.PkgPath == p.ForTest+"_test" {
				tests[p.ForTest] = append(tests[p.ForTest], p)
			}
		default:
			base[p.PkgPath] = p
		}
	})

	keep := func(p *packages.Package) bool {
		return std || !isStd(p)
	}

	paths := make([]string, 0, len(base))
	for path, p := range base {
		if keep(p) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	md := &deps.Metadata{Resolve: make(map[string][]deps.Dependency, len(paths))}
	for _, path := range paths {
		p := base[path]
		md.Packages = append(md.Packages, deps.Package{ID: path, Name: path, Version: moduleVersion(p)})
		if p.Module != nil && p.Module.Main {
			md.WorkspaceMembers = append(md.WorkspaceMembers, path)
		}

		var list []deps.Dependency
		seen := map[string]bool{path: true}
		for _, imp := range sortedImports(p) {
			if seen[imp.PkgPath] || !keep(imp) {
				continue
			}
			seen[imp.PkgPath] = true
			list = append(list, deps.Dependency{ID: imp.PkgPath, Kinds: []deps.Kind{deps.Normal}})
		}
		for _, variant := range tests[path] {
			for _, imp := range sortedImports(variant) {
				if seen[imp.PkgPath] || !keep(imp) {
					continue
				}
				seen[imp.PkgPath] = true
				list = append(list, deps.Dependency{ID: imp.PkgPath, Kinds: []deps.Kind{deps.Dev}})
			}
		}
		md.Resolve[path] = list
	}
	return md
}

func sortedImports(p *packages.Package) []*packages.Package {
	keys := make([]string, 0, len(p.Imports))
	for k := range p.Imports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*packages.Package, 0, len(keys))
	for _, k := range keys {
		out = append(out, p.Imports[k])
	}
	return out
}

// isStd reports whether p belongs to the standard library. Standard packages
// have no module and no dot in their first path element.
func isStd(p *packages.Package) bool {
	if p.Module != nil {
		return false
	}
	first, _, _ := strings.Cut(p.PkgPath, "/")
	return !strings.Contains(first, ".")
}

func moduleVersion(p *packages.Package) string {
	m := p.Module
	switch {
	case m == nil:
		return ""
	case m.Main:
		return MemberVersion
	case m.Replace != nil && m.Replace.Version != "":
		return m.Replace.Version
	default:
		return m.Version
	}
}
