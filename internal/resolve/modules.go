// Package resolve produces dependency metadata for Go projects, either at
// module granularity from go.mod files or at package granularity from the go
// command's package loader.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"github.com/kms7530/rust-grapher/internal/deps"
)

var tracer = otel.Tracer("rust-grapher/resolve")

// MemberVersion is the version reported for workspace modules.
const MemberVersion = "devel"

// ModulesOptions configures Modules.
type ModulesOptions struct {
	// ModCache is the module cache root. Empty means GOMODCACHE, then the
	// first GOPATH entry's pkg/mod, then ~/go/pkg/mod.
	ModCache string
}

type member struct {
	path string
	dir  string
	file *modfile.File
}

// modules holds the state of one Modules call.
type modules struct {
	cache    string
	members  map[string]*member
	selected map[string]string
	replaces map[string]module.Version
	// replaceDirs maps a replaced module path to the directory holding its
	// go.mod when the replacement is a local path.
	replaceDirs map[string]string

	md    *deps.Metadata
	known map[string]bool
}

// Modules resolves the module graph rooted at manifest, which is either a
// go.mod file or a go.work file. Workspace members are the main module or the
// modules used by the workspace. Their dependencies are read from the module
// cache; a module whose go.mod is not cached is reported as a leaf.
func Modules(ctx context.Context, manifest string, opts ModulesOptions) (*deps.Metadata, error) {
	_, span := tracer.Start(ctx, "resolve.Modules")
	defer span.End()

	r := &modules{
		cache:       opts.ModCache,
		members:     make(map[string]*member),
		selected:    make(map[string]string),
		replaces:    make(map[string]module.Version),
		replaceDirs: make(map[string]string),
		md:          &deps.Metadata{Resolve: make(map[string][]deps.Dependency)},
		known:       make(map[string]bool),
	}
	if r.cache == "" {
		r.cache = defaultModCache()
	}

	order, err := r.loadMembers(manifest)
	if err != nil {
		return nil, err
	}

	queue := make([]module.Version, 0, len(order))
	for _, m := range order {
		r.add(deps.Package{ID: m.path, Name: m.path, Version: MemberVersion})
		r.md.WorkspaceMembers = append(r.md.WorkspaceMembers, m.path)
		queue = append(queue, module.Version{Path: m.path})
	}

	for len(queue) > 0 {
		mod := queue[0]
		queue = queue[1:]

		f := r.modFile(mod)
		if f == nil {
			r.md.Resolve[r.id(mod)] = []deps.Dependency{}
			continue
		}
		list, next := r.dependencies(f)
		r.md.Resolve[r.id(mod)] = list
		for _, dep := range next {
			if r.add(deps.Package{ID: r.id(dep), Name: dep.Path, Version: r.version(dep)}) {
				queue = append(queue, dep)
			}
		}
	}

	slog.Debug("module graph resolved",
		slog.String("manifest", manifest),
		slog.Int("members", len(r.md.WorkspaceMembers)),
		slog.Int("modules", len(r.md.Packages)))
	return r.md, nil
}

// loadMembers parses the manifest and the go.mod of every workspace member.
func (r *modules) loadMembers(manifest string) ([]*member, error) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	dir := filepath.Dir(manifest)

	var dirs []string
	if filepath.Base(manifest) == "go.work" {
		wf, err := modfile.ParseWork(manifest, data, nil)
		if err != nil {
			return nil, fmt.Errorf("parse go.work: %w", err)
		}
		for _, use := range wf.Use {
			dirs = append(dirs, filepath.Join(dir, filepath.FromSlash(use.Path)))
		}
		for _, rep := range wf.Replace {
			r.addReplace(dir, rep)
		}
	} else {
		dirs = []string{dir}
	}

	var order []*member
	for _, d := range dirs {
		path := filepath.Join(d, "go.mod")
		content := data
		if path != manifest {
			if content, err = os.ReadFile(path); err != nil {
				return nil, fmt.Errorf("reading go.mod: %w", err)
			}
		}
		f, err := modfile.Parse(path, content, nil)
		if err != nil {
			return nil, fmt.Errorf("parse go.mod: %w", err)
		}
		if f.Module == nil {
			return nil, fmt.Errorf("%s: module directive not found", path)
		}
		m := &member{path: f.Module.Mod.Path, dir: d, file: f}
		r.members[m.path] = m
		order = append(order, m)

		for _, req := range f.Require {
			r.selectVersion(req.Mod)
		}
		for _, rep := range f.Replace {
			r.addReplace(d, rep)
		}
	}
	return order, nil
}

func (r *modules) addReplace(dir string, rep *modfile.Replace) {
	key := rep.Old.Path
	if rep.Old.Version != "" {
		key += "@" + rep.Old.Version
	}
	if _, ok := r.replaces[key]; ok {
		return
	}
	r.replaces[key] = rep.New
	if rep.New.Version == "" {
		local := filepath.FromSlash(rep.New.Path)
		if !filepath.IsAbs(local) {
			local = filepath.Join(dir, local)
		}
		r.replaceDirs[key] = local
	}
}

// selectVersion keeps the highest version required for each module path.
func (r *modules) selectVersion(mod module.Version) {
	if cur, ok := r.selected[mod.Path]; !ok || semver.Compare(mod.Version, cur) > 0 {
		r.selected[mod.Path] = mod.Version
	}
}

// version returns the version a dependency resolves to.
func (r *modules) version(mod module.Version) string {
	if _, ok := r.members[mod.Path]; ok {
		return MemberVersion
	}
	if sel, ok := r.selected[mod.Path]; ok && semver.Compare(sel, mod.Version) > 0 {
		return sel
	}
	return mod.Version
}

func (r *modules) id(mod module.Version) string {
	if _, ok := r.members[mod.Path]; ok {
		return mod.Path
	}
	return mod.Path + "@" + r.version(mod)
}

func (r *modules) add(p deps.Package) bool {
	if r.known[p.ID] {
		return false
	}
	r.known[p.ID] = true
	r.md.Packages = append(r.md.Packages, p)
	return true
}

// dependencies lists the direct dependencies declared by f: non-indirect
// requirements as Normal, modules providing a tool directive as Build.
func (r *modules) dependencies(f *modfile.File) ([]deps.Dependency, []module.Version) {
	var (
		list  []deps.Dependency
		mods  []module.Version
		index = make(map[string]int)
	)
	add := func(mod module.Version, kind deps.Kind) {
		id := r.id(mod)
		if i, ok := index[id]; ok {
			list[i].Kinds = append(list[i].Kinds, kind)
			return
		}
		index[id] = len(list)
		list = append(list, deps.Dependency{ID: id, Kinds: []deps.Kind{kind}})
		mods = append(mods, mod)
	}

	for _, req := range f.Require {
		if !req.Indirect {
			add(req.Mod, deps.Normal)
		}
	}
	for _, tool := range f.Tool {
		if mod, ok := providingModule(f, tool.Path); ok {
			add(mod, deps.Build)
		}
	}
	return list, mods
}

// providingModule finds the requirement whose module path is the longest
// prefix of the package path pkg.
func providingModule(f *modfile.File, pkg string) (module.Version, bool) {
	var best module.Version
	found := false
	for _, req := range f.Require {
		p := req.Mod.Path
		if pkg != p && !strings.HasPrefix(pkg, p+"/") {
			continue
		}
		if !found || len(p) > len(best.Path) {
			best, found = req.Mod, true
		}
	}
	return best, found
}

// modFile returns the parsed go.mod for mod, or nil when it is unavailable.
func (r *modules) modFile(mod module.Version) *modfile.File {
	if m, ok := r.members[mod.Path]; ok {
		return m.file
	}

	mod.Version = r.version(mod)
	target, dir := r.replacement(mod)
	var path string
	if dir != "" {
		path = filepath.Join(dir, "go.mod")
	} else if p, err := r.cachePath(target); err == nil {
		path = p
	} else {
		slog.Debug("cannot locate module go.mod", slog.String("module", mod.String()), slog.Any("error", err))
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("module go.mod not cached", slog.String("module", mod.String()), slog.String("path", path))
		return nil
	}
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		slog.Debug("skipping unparsable go.mod", slog.String("path", path), slog.Any("error", err))
		return nil
	}
	return f
}

// replacement applies replace directives to mod. A local replacement is
// returned as a directory.
func (r *modules) replacement(mod module.Version) (module.Version, string) {
	for _, key := range []string{mod.Path + "@" + mod.Version, mod.Path} {
		if rep, ok := r.replaces[key]; ok {
			return rep, r.replaceDirs[key]
		}
	}
	return mod, ""
}

// cachePath returns the location of the go.mod of mod in the download cache.
func (r *modules) cachePath(mod module.Version) (string, error) {
	escPath, err := module.EscapePath(mod.Path)
	if err != nil {
		return "", fmt.Errorf("escape module path: %w", err)
	}
	escVersion, err := module.EscapeVersion(mod.Version)
	if err != nil {
		return "", fmt.Errorf("escape version: %w", err)
	}
	return filepath.Join(r.cache, "cache", "download", filepath.FromSlash(escPath), "@v", escVersion+".mod"), nil
}

func defaultModCache() string {
	if dir := os.Getenv("GOMODCACHE"); dir != "" {
		return dir
	}
	gopath := os.Getenv("GOPATH")
	if list := filepath.SplitList(gopath); len(list) > 0 && list[0] != "" {
		return filepath.Join(list[0], "pkg", "mod")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "go", "pkg", "mod")
}
