package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kms7530/rust-grapher/internal/calls"
)

const goFixture = `package app

import (
	"context"
	"fmt"
	str "strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type Server struct{}

func New() *Server {
	return &Server{}
}

func (s *Server) Run(ctx context.Context, n int) error {
	s.setup()
	fmt.Println(str.ToUpper("x"))
	go func() { helper() }()
	_ = neo4j.BasicAuth("a", "b", "")
	return nil
}

func (s *Server) setup() {}

func helper() (int, error) { return 0, nil }

func Map[T any](xs []T, f func(T) T) []T { return nil }
`

func TestParseGo(t *testing.T) {
	facts, err := parseGo("app/server.go", []byte(goFixture))
	require.NoError(t, err)

	byName := make(map[string]calls.Function)
	var names []string
	for _, fn := range facts.Functions {
		names = append(names, fn.QualifiedName)
		byName[fn.QualifiedName] = fn
	}
	assert.Equal(t, []string{"app.New", "app.Server.Run", "app.Server.setup", "app.helper", "app.Map"}, names)

	run := byName["app.Server.Run"]
	assert.Equal(t, "Run", run.Name)
	assert.True(t, run.Public)
	assert.Equal(t, 17, run.Line)
	assert.Equal(t, "func (s *Server) Run(ctx context.Context, n int) error", run.Signature)

	assert.False(t, byName["app.Server.setup"].Public)
	assert.Equal(t, "func New() *Server", byName["app.New"].Signature)
	assert.Equal(t, "func helper() (int, error)", byName["app.helper"].Signature)
	assert.Equal(t, "func Map[T any](xs []T, f func(T) T) []T", byName["app.Map"].Signature)

	assert.Equal(t, []calls.Call{
		{Caller: "app.Server.Run", Callee: "setup", Kind: calls.Method},
		{Caller: "app.Server.Run", Callee: "fmt.Println", Kind: calls.Direct},
		{Caller: "app.Server.Run", Callee: "str.ToUpper", Kind: calls.Direct},
		{Caller: "app.Server.Run", Callee: "helper", Kind: calls.Direct},
		{Caller: "app.Server.Run", Callee: "neo4j.BasicAuth", Kind: calls.Direct},
	}, facts.Calls)
}

func TestParseGoSyntaxError(t *testing.T) {
	_, err := parseGo("bad.go", []byte("package x\nfunc ("))
	require.Error(t, err)
}

func TestDefaultImportName(t *testing.T) {
	tests := map[string]string{
		"fmt":                                       "fmt",
		"golang.org/x/mod/semver":                   "semver",
		"gopkg.in/yaml.v3":                          "yaml",
		"github.com/go-playground/validator/v10":    "validator",
		"github.com/smacker/go-tree-sitter/rust":    "rust",
		"github.com/neo4j/neo4j-go-driver/v5/neo4j": "neo4j",
	}
	for path, want := range tests {
		assert.Equal(t, want, defaultImportName(path), path)
	}
}
