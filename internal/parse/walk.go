package parse

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

var skippedDirs = map[string]bool{
	".git":         true,
	"target":       true,
	"vendor":       true,
	"node_modules": true,
}

// walk lists the source files under root as sorted slash-separated relative
// paths.
func walk(root string, opts Options) ([]string, error) {
	f, err := NewFilter(root, opts)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p != root && f.skipDir(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !wanted(rel, opts) || matchesAny(f.skip, rel, d.Name()) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Filter decides which paths under a root Collect considers. Paths given to
// its methods may be absolute or relative to the working directory, like the
// root.
type Filter struct {
	root string
	opts Options
	skip []glob.Glob
}

// NewFilter compiles the skip globs of opts for the tree at root.
func NewFilter(root string, opts Options) (*Filter, error) {
	skip, err := compileGlobs(opts.Skip)
	if err != nil {
		return nil, err
	}
	return &Filter{root: root, opts: opts, skip: skip}, nil
}

func (f *Filter) rel(p string) (string, bool) {
	rel, err := filepath.Rel(f.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (f *Filter) skipDir(rel string) bool {
	return skippedDirs[path.Base(rel)] || matchesAny(f.skip, rel, path.Base(rel))
}

// SkipDir reports whether the directory at p is left out, either by name or
// by a skip glob. The root itself is never skipped.
func (f *Filter) SkipDir(p string) bool {
	rel, ok := f.rel(p)
	if !ok {
		return true
	}
	return rel != "." && f.skipDir(rel)
}

// Wanted reports whether the file at p would be parsed: it has a source
// extension, and neither it nor any directory above it is skipped.
func (f *Filter) Wanted(p string) bool {
	rel, ok := f.rel(p)
	if !ok || rel == "." || !wanted(rel, f.opts) || matchesAny(f.skip, rel, path.Base(rel)) {
		return false
	}
	for dir := path.Dir(rel); dir != "."; dir = path.Dir(dir) {
		if f.skipDir(dir) {
			return false
		}
	}
	return true
}

func wanted(rel string, opts Options) bool {
	switch opts.Language {
	case Go:
		if !opts.Tests && strings.HasSuffix(rel, "_test.go") {
			return false
		}
		return path.Ext(rel) == ".go"
	default:
		return path.Ext(rel) == ".rs"
	}
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid skip pattern %q: %w", pattern, err)
		}
		matchers = append(matchers, g)
	}
	return matchers, nil
}

func matchesAny(matchers []glob.Glob, rel, name string) bool {
	for _, g := range matchers {
		if g.Match(rel) || g.Match(name) {
			return true
		}
	}
	return false
}
