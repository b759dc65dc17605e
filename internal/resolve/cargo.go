package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"

	"github.com/kms7530/rust-grapher/internal/deps"
)

// cargoMetadata mirrors the parts of `cargo metadata --format-version 1`
// output that the dependency builder consumes.
type cargoMetadata struct {
	Packages []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"packages"`
	WorkspaceMembers []string `json:"workspace_members"`
	Resolve          *struct {
		Nodes []struct {
			ID   string `json:"id"`
			Deps []struct {
				Pkg      string `json:"pkg"`
				DepKinds []struct {
					Kind *string `json:"kind"`
				} `json:"dep_kinds"`
			} `json:"deps"`
		} `json:"nodes"`
	} `json:"resolve"`
}

// Cargo runs `cargo metadata` for the manifest and decodes its output.
func Cargo(ctx context.Context, manifest string) (*deps.Metadata, error) {
	ctx, span := tracer.Start(ctx, "resolve.Cargo")
	defer span.End()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "cargo", "metadata", "--format-version", "1", "--manifest-path", manifest)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("cargo metadata: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("cargo metadata: %w", err)
	}
	return DecodeCargo(&stdout)
}

// DecodeCargo converts cargo metadata JSON. A null resolve section yields
// metadata with a nil Resolve.
func DecodeCargo(r io.Reader) (*deps.Metadata, error) {
	var raw cargoMetadata
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode cargo metadata: %w", err)
	}

	md := &deps.Metadata{WorkspaceMembers: raw.WorkspaceMembers}
	for _, p := range raw.Packages {
		md.Packages = append(md.Packages, deps.Package{ID: p.ID, Name: p.Name, Version: p.Version})
	}
	if raw.Resolve == nil {
		return md, nil
	}

	md.Resolve = make(map[string][]deps.Dependency, len(raw.Resolve.Nodes))
	for _, n := range raw.Resolve.Nodes {
		list := make([]deps.Dependency, 0, len(n.Deps))
		for _, d := range n.Deps {
			dep := deps.Dependency{ID: d.Pkg}
			for _, k := range d.DepKinds {
				dep.Kinds = append(dep.Kinds, cargoKind(k.Kind))
			}
			list = append(list, dep)
		}
		md.Resolve[n.ID] = list
	}
	return md, nil
}

func cargoKind(kind *string) deps.Kind {
	if kind == nil {
		return deps.Normal
	}
	switch *kind {
	case "dev":
		return deps.Dev
	case "build":
		return deps.Build
	default:
		return deps.Normal
	}
}
