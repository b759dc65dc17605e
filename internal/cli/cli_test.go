package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kms7530/rust-grapher/internal/config"
	"github.com/kms7530/rust-grapher/internal/deps"
	"github.com/kms7530/rust-grapher/internal/parse"
)

type jsonDoc struct {
	Nodes []struct {
		Name string `json:"name"`
	} `json:"nodes"`
	Edges []struct {
		From string `json:"from"`
		To   string `json:"to"`
		Kind string `json:"kind"`
	} `json:"edges"`
}

func (d jsonDoc) names() []string {
	out := make([]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		out = append(out, n.Name)
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// run executes the command line and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), "test", args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func decode(t *testing.T, out string) jsonDoc {
	t.Helper()
	var doc jsonDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	return doc
}

// goModule writes a module depending on example.com/lib, which in turn
// depends on example.com/util, and returns the go.mod path and module cache.
func goModule(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cache := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/app\n\ngo 1.24\n\nrequire example.com/lib v1.0.0\n")
	writeFile(t, filepath.Join(cache, "cache", "download", "example.com", "lib", "@v", "v1.0.0.mod"),
		"module example.com/lib\n\ngo 1.21\n\nrequire example.com/util v0.2.0\n")
	return filepath.Join(dir, "go.mod"), cache
}

func TestDepsGoModule(t *testing.T) {
	manifest, cache := goModule(t)

	out, _, err := run(t, "deps", "-m", manifest, "--mod-cache", cache, "-f", "json")
	require.NoError(t, err)

	doc := decode(t, out)
	assert.Equal(t, []string{"example.com/app", "example.com/lib", "example.com/util"}, doc.names())
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, "normal", doc.Edges[0].Kind)
}

func TestDepsNoTransitiveAndFocus(t *testing.T) {
	manifest, cache := goModule(t)

	out, _, err := run(t, "deps", "-m", manifest, "--mod-cache", cache, "-f", "json", "--no-transitive")
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/app", "example.com/lib"}, decode(t, out).names())

	out, _, err = run(t, "deps", "-m", manifest, "--mod-cache", cache, "-f", "json", "-e", "*/util")
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/app", "example.com/lib"}, decode(t, out).names())

	out, _, err = run(t, "deps", "-m", manifest, "--mod-cache", cache, "-f", "json",
		"--focus", "example.com/util", "--focus-depth", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/lib", "example.com/util"}, decode(t, out).names())
}

func TestDepsOutputFileAndCycles(t *testing.T) {
	manifest, cache := goModule(t)
	output := filepath.Join(t.TempDir(), "deps.md")

	out, stderr, err := run(t, "deps", "-m", manifest, "--mod-cache", cache, "-o", output, "--report-cycles")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "Graph written to: "+output)
	assert.Contains(t, stderr, "No dependency cycles.")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "```mermaid")
	assert.Contains(t, string(data), "flowchart LR")
}

func TestDepsErrors(t *testing.T) {
	manifest, cache := goModule(t)

	_, _, err := run(t, "deps", "-m", manifest, "--mod-cache", cache, "-p", "missing")
	require.ErrorIs(t, err, deps.ErrNoPackages)

	_, _, err = run(t, "deps", "-m", manifest, "-f", "svg")
	require.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = run(t, "deps", "-m", manifest, "--level", "files")
	require.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = run(t, "deps", "-m", filepath.Join(t.TempDir(), "go.mod"))
	require.Error(t, err)
}

func TestDepsConfigFile(t *testing.T) {
	manifest, cache := goModule(t)
	cfg := filepath.Join(t.TempDir(), "grapher.yaml")
	writeFile(t, cfg, "deps:\n  format: json\n  no-transitive: true\n  depth: 5\n")

	out, _, err := run(t, "--config", cfg, "deps", "-m", manifest, "--mod-cache", cache, "--depth", "0")
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/app", "example.com/lib"}, decode(t, out).names())

	writeFile(t, cfg, "deps:\n  colour: red\n")
	_, _, err = run(t, "--config", cfg, "deps", "-m", manifest, "--mod-cache", cache)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func rustTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.rs"), `fn main() {
    let db = Db::open();
    db.query();
    helper();
}

pub fn helper() {
    log();
}

fn log() {}

pub struct Db;

impl Db {
    pub fn open() -> Self {
        Db
    }

    pub fn query(&self) {
        log();
    }
}
`)
	writeFile(t, filepath.Join(root, "src", "broken.rs"), "fn broken( {\n")
	return filepath.Join(root, "src")
}

func TestFnGraph(t *testing.T) {
	src := rustTree(t)

	out, _, err := run(t, "fn-graph", "-s", src, "-f", "json")
	require.NoError(t, err)

	doc := decode(t, out)
	assert.ElementsMatch(t, []string{"main", "helper", "log", "open", "query"}, doc.names())
	assert.Len(t, doc.Edges, 5)
}

func TestFnGraphFiltersAndFocus(t *testing.T) {
	src := rustTree(t)

	out, _, err := run(t, "fn-graph", "-s", src, "-f", "json", "--public-only")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"helper", "open", "query"}, decode(t, out).names())

	out, _, err = run(t, "fn-graph", "-s", src, "-f", "json", "--focus", "helper", "--depth", "1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "helper", "log"}, decode(t, out).names())

	out, _, err = run(t, "fn-graph", "-s", src, "-f", "json", "-e", "Db::*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "helper", "log"}, decode(t, out).names())
}

func TestFnGraphErrors(t *testing.T) {
	_, _, err := run(t, "fn-graph", "-s", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, parse.ErrSourceNotFound)

	_, _, err = run(t, "fn-graph", "-s", t.TempDir(), "--lang", "zig")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestWatchOptionsHonourSkipGlobs(t *testing.T) {
	src := rustTree(t)
	filter, err := parse.NewFilter(src, parse.Options{Skip: []string{"generated", "*_pb.rs"}})
	require.NoError(t, err)

	opts := watchOptions(filter, 0)
	assert.True(t, opts.Relevant(filepath.Join(src, "main.rs")))
	assert.False(t, opts.Relevant(filepath.Join(src, "api_pb.rs")))
	assert.False(t, opts.Relevant(filepath.Join(src, "generated", "out.rs")))
	assert.False(t, opts.Relevant(filepath.Join(src, "notes.md")))
	assert.True(t, opts.SkipDir(filepath.Join(src, "generated")))
	assert.False(t, opts.SkipDir(filepath.Join(src, "db")))
}
