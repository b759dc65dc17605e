package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/tools/go/packages"

	"github.com/kms7530/rust-grapher/internal/deps"
)

func loadedFixture() []*packages.Package {
	mainMod := &packages.Module{Path: "example.com/app", Main: true}
	ext := &packages.Module{Path: "github.com/x/y", Version: "v1.0.0"}
	testify := &packages.Module{
		Path:    "github.com/stretchr/testify",
		Version: "v1.9.0",
		Replace: &packages.Module{Path: "github.com/stretchr/testify", Version: "v1.11.1"},
	}

	fmtPkg := &packages.Package{ID: "fmt", PkgPath: "fmt", Name: "fmt"}
	y := &packages.Package{ID: "github.com/x/y", PkgPath: "github.com/x/y", Name: "y", Module: ext}
	assertPkg := &packages.Package{
		ID: "github.com/stretchr/testify/assert", PkgPath: "github.com/stretchr/testify/assert",
		Name: "assert", Module: testify,
	}
	lib := &packages.Package{
		ID: "example.com/app/lib", PkgPath: "example.com/app/lib", Name: "lib", Module: mainMod,
		Imports: map[string]*packages.Package{"fmt": fmtPkg, "github.com/x/y": y},
	}
	libTest := &packages.Package{
		ID: "example.com/app/lib [example.com/app/lib.test]", PkgPath: "example.com/app/lib",
		Name: "lib", Module: mainMod, ForTest: "example.com/app/lib",
		Imports: map[string]*packages.Package{
			"fmt":                                fmtPkg,
			"github.com/x/y":                     y,
			"github.com/stretchr/testify/assert": assertPkg,
		},
	}
	testMain := &packages.Package{
		ID: "example.com/app/lib.test", PkgPath: "example.com/app/lib.test", Name: "main", Module: mainMod,
		Imports: map[string]*packages.Package{"example.com/app/lib": libTest},
	}
	cmd := &packages.Package{
		ID: "example.com/app/cmd", PkgPath: "example.com/app/cmd", Name: "main", Module: mainMod,
		Imports: map[string]*packages.Package{"example.com/app/lib": lib},
	}
	return []*packages.Package{cmd, lib, libTest, testMain}
}

func TestFromPackages(t *testing.T) {
	md := fromPackages(loadedFixture(), false)

	assert.Equal(t, []string{
		"example.com/app/cmd",
		"example.com/app/lib",
		"github.com/stretchr/testify/assert",
		"github.com/x/y",
	}, ids(md))
	assert.Equal(t, []string{"example.com/app/cmd", "example.com/app/lib"}, md.WorkspaceMembers)

	assert.Equal(t, []deps.Dependency{
		{ID: "example.com/app/lib", Kinds: []deps.Kind{deps.Normal}},
	}, md.Resolve["example.com/app/cmd"])
	assert.Equal(t, []deps.Dependency{
		{ID: "github.com/x/y", Kinds: []deps.Kind{deps.Normal}},
		{ID: "github.com/stretchr/testify/assert", Kinds: []deps.Kind{deps.Dev}},
	}, md.Resolve["example.com/app/lib"])

	versions := make(map[string]string)
	for _, p := range md.Packages {
		versions[p.ID] = p.Version
	}
	assert.Equal(t, MemberVersion, versions["example.com/app/lib"])
	assert.Equal(t, "v1.0.0", versions["github.com/x/y"])
	assert.Equal(t, "v1.11.1", versions["github.com/stretchr/testify/assert"])
}

func TestFromPackagesStd(t *testing.T) {
	md := fromPackages(loadedFixture(), true)

	assert.Contains(t, ids(md), "fmt")
	assert.Equal(t, deps.Dependency{ID: "fmt", Kinds: []deps.Kind{deps.Normal}}, md.Resolve["example.com/app/lib"][0])
}

func TestIsStd(t *testing.T) {
	assert.True(t, isStd(&packages.Package{PkgPath: "net/http"}))
	assert.False(t, isStd(&packages.Package{PkgPath: "github.com/x/y"}))
	assert.False(t, isStd(&packages.Package{PkgPath: "local/thing", Module: &packages.Module{Path: "local"}}))
}

func TestFromPackagesIgnoresRecompiledDependencies(t *testing.T) {
	mainMod := &packages.Module{Path: "example.com/app", Main: true}
	pkg := func(id, path, forTest string, imports ...*packages.Package) *packages.Package {
		p := &packages.Package{ID: id, PkgPath: path, Module: mainMod, ForTest: forTest, Imports: map[string]*packages.Package{}}
		for _, imp := range imports {
			p.Imports[imp.PkgPath] = imp
		}
		return p
	}

	// p's external test imports q, and q imports p and r. The go command
	// recompiles q against p's test variant.
	r := pkg("example.com/app/r", "example.com/app/r", "")
	p := pkg("example.com/app/p", "example.com/app/p", "")
	q := pkg("example.com/app/q", "example.com/app/q", "", p, r)
	pTest := pkg("example.com/app/p [example.com/app/p.test]", "example.com/app/p", "example.com/app/p")
	qTest := pkg("example.com/app/q [example.com/app/p.test]", "example.com/app/q", "example.com/app/p", pTest, r)
	pExt := pkg("example.com/app/p_test [example.com/app/p.test]", "example.com/app/p_test", "example.com/app/p", pTest, qTest)

	md := fromPackages([]*packages.Package{p, q, r, pTest, qTest, pExt}, false)

	assert.Equal(t, []string{"example.com/app/p", "example.com/app/q", "example.com/app/r"}, ids(md))
	assert.Equal(t, []deps.Dependency{
		{ID: "example.com/app/q", Kinds: []deps.Kind{deps.Dev}},
	}, md.Resolve["example.com/app/p"])
	assert.Equal(t, []deps.Dependency{
		{ID: "example.com/app/p", Kinds: []deps.Kind{deps.Normal}},
		{ID: "example.com/app/r", Kinds: []deps.Kind{deps.Normal}},
	}, md.Resolve["example.com/app/q"])
}
