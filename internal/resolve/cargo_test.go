package resolve

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kms7530/rust-grapher/internal/deps"
)

const cargoJSON = `{
  "packages": [
    {"id": "app 0.1.0 (path+file:///w/app)", "name": "app", "version": "0.1.0"},
    {"id": "serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)", "name": "serde", "version": "1.0.200"},
    {"id": "tempfile 3.10.0 (registry+https://github.com/rust-lang/crates.io-index)", "name": "tempfile", "version": "3.10.0"},
    {"id": "cc 1.0.90 (registry+https://github.com/rust-lang/crates.io-index)", "name": "cc", "version": "1.0.90"}
  ],
  "workspace_members": ["app 0.1.0 (path+file:///w/app)"],
  "resolve": {
    "nodes": [
      {
        "id": "app 0.1.0 (path+file:///w/app)",
        "deps": [
          {"pkg": "serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)", "dep_kinds": [{"kind": null}]},
          {"pkg": "tempfile 3.10.0 (registry+https://github.com/rust-lang/crates.io-index)", "dep_kinds": [{"kind": "dev"}]},
          {"pkg": "cc 1.0.90 (registry+https://github.com/rust-lang/crates.io-index)", "dep_kinds": [{"kind": "build"}, {"kind": null}]}
        ]
      },
      {"id": "serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)", "deps": []}
    ]
  }
}`

func TestDecodeCargo(t *testing.T) {
	md, err := DecodeCargo(strings.NewReader(cargoJSON))
	require.NoError(t, err)

	require.Len(t, md.Packages, 4)
	assert.Equal(t, "serde", md.Packages[1].Name)
	assert.Equal(t, "1.0.200", md.Packages[1].Version)
	assert.Equal(t, []string{"app 0.1.0 (path+file:///w/app)"}, md.WorkspaceMembers)

	list := md.Resolve["app 0.1.0 (path+file:///w/app)"]
	require.Len(t, list, 3)
	assert.Equal(t, deps.Normal, list[0].Kind())
	assert.Equal(t, deps.Dev, list[1].Kind())
	assert.Equal(t, deps.Build, list[2].Kind())
	assert.Equal(t, []deps.Kind{deps.Build, deps.Normal}, list[2].Kinds)

	roots, err := deps.SelectRoots(md, "")
	require.NoError(t, err)
	res, err := deps.BuildGraph(context.Background(), md, roots, deps.Options{NoDev: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Graph.Len())
}

func TestDecodeCargoWithoutResolve(t *testing.T) {
	md, err := DecodeCargo(strings.NewReader(`{"packages": [], "workspace_members": [], "resolve": null}`))
	require.NoError(t, err)
	assert.Nil(t, md.Resolve)
}

func TestDecodeCargoInvalid(t *testing.T) {
	_, err := DecodeCargo(strings.NewReader("not json"))
	require.Error(t, err)
}
