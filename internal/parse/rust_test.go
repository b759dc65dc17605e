package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kms7530/rust-grapher/internal/calls"
)

const rustFixture = `use std::collections::HashMap;

pub fn main() {
    let cfg = config::load();
    run(&cfg);
    helper();
}

fn helper() {
    println!("hi");
}

pub(crate) async fn fetch(url: &str) -> Result<String, Error> {
    client.get(url).send().await
}

mod config {
    pub fn load() -> Config {
        Config::new()
    }
}

pub struct Db;

impl Db {
    pub fn new() -> Self {
        Db
    }

    pub fn query(&self, sql: &str) -> Vec<Row> {
        let f = |x| inner(x);
        fn nested() {}
        self.exec(sql)
    }
}

impl<T> Display for Wrapper<T> {
    fn fmt(&self, f: &mut Formatter) -> fmt::Result {
        write!(f, "x")
    }
}

trait Shape {
    fn area(&self) -> f64 {
        compute()
    }
}
`

func TestParseRustFunctions(t *testing.T) {
	facts, err := File(context.Background(), Rust, "src/main.rs", []byte(rustFixture))
	require.NoError(t, err)

	names := make([]string, 0, len(facts.Functions))
	for _, fn := range facts.Functions {
		names = append(names, fn.QualifiedName)
	}
	assert.Equal(t, []string{
		"main",
		"helper",
		"fetch",
		"config::load",
		"Db::new",
		"Db::query",
		"Db::nested",
		"Wrapper::fmt",
	}, names)

	byName := make(map[string]calls.Function)
	for _, fn := range facts.Functions {
		byName[fn.QualifiedName] = fn
	}

	main := byName["main"]
	assert.True(t, main.Public)
	assert.Equal(t, 3, main.Line)
	assert.Equal(t, "src/main.rs", main.File)
	assert.Equal(t, "fn main()", main.Signature)

	fetch := byName["fetch"]
	assert.False(t, fetch.Public, "pub(crate) is not public")
	assert.True(t, fetch.Async)
	assert.Equal(t, "fn fetch(url: &str) -> Result<String, Error>", fetch.Signature)
	assert.Equal(t, 13, fetch.Line)

	assert.False(t, byName["helper"].Public)
	assert.True(t, byName["config::load"].Public)
	assert.Equal(t, "load", byName["config::load"].Name)
	assert.Equal(t, "fn query(&self, sql: &str) -> Vec<Row>", byName["Db::query"].Signature)
	assert.Equal(t, "fn fmt(&self, f: &mut Formatter) -> fmt::Result", byName["Wrapper::fmt"].Signature)
}

func TestParseRustCalls(t *testing.T) {
	facts, err := File(context.Background(), Rust, "src/main.rs", []byte(rustFixture))
	require.NoError(t, err)

	assert.Equal(t, []calls.Call{
		{Caller: "main", Callee: "config::load", Kind: calls.Direct},
		{Caller: "main", Callee: "run", Kind: calls.Direct},
		{Caller: "main", Callee: "helper", Kind: calls.Direct},
		{Caller: "fetch", Callee: "send", Kind: calls.Method},
		{Caller: "fetch", Callee: "get", Kind: calls.Method},
		{Caller: "config::load", Callee: "Config::new", Kind: calls.Direct},
		{Caller: "Db::query", Callee: "inner", Kind: calls.Direct},
		{Caller: "Db::query", Callee: "exec", Kind: calls.Method},
	}, facts.Calls)
}

func TestParseRustGenericCalls(t *testing.T) {
	src := `fn run() {
    let v = parse::<u32>("1");
    let w = Vec::<u8>::new();
    let n = items.iter().map(f).collect::<Vec<_>>();
}
`
	facts, err := File(context.Background(), Rust, "lib.rs", []byte(src))
	require.NoError(t, err)

	callees := make([]string, 0, len(facts.Calls))
	for _, c := range facts.Calls {
		callees = append(callees, c.Callee)
	}
	assert.Equal(t, []string{"parse", "Vec::new", "collect", "map", "iter"}, callees)
	assert.Equal(t, calls.Method, facts.Calls[2].Kind)
}

func TestParseRustSyntaxError(t *testing.T) {
	_, err := File(context.Background(), Rust, "bad.rs", []byte("fn broken( {"))
	require.ErrorIs(t, err, errSyntax)
}
