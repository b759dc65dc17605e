// Package export loads finished graphs into Neo4j using batched UNWIND
// queries.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"

	"github.com/kms7530/rust-grapher/internal/calls"
	"github.com/kms7530/rust-grapher/internal/deps"
)

var tracer = otel.Tracer("rust-grapher/export")

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 1000

// Config describes the Neo4j connection.
type Config struct {
	URI      string `validate:"required"`
	User     string
	Password string
	Database string
	// Clean removes previously loaded nodes and relationships first.
	Clean     bool
	BatchSize int `validate:"gte=0"`
}

// runner executes one Cypher statement.
type runner interface {
	run(ctx context.Context, cypher string, params map[string]any) error
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d driverRunner) run(ctx context.Context, cypher string, params map[string]any) error {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	_, err := neo4j.ExecuteQuery(ctx, d.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	return err
}

// Loader writes dependency and call graphs into a Neo4j database.
type Loader struct {
	driver    neo4j.DriverWithContext
	runner    runner
	batchSize int
}

// NewLoader connects to Neo4j and returns a ready-to-use loader.
func NewLoader(ctx context.Context, cfg Config) (*Loader, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j at %s: %w", cfg.URI, err)
	}
	return &Loader{
		driver:    driver,
		runner:    driverRunner{driver: driver, database: cfg.Database},
		batchSize: cfg.BatchSize,
	}, nil
}

// Close releases the underlying driver resources.
func (l *Loader) Close(ctx context.Context) error {
	if l.driver == nil {
		return nil
	}
	return l.driver.Close(ctx)
}

// CleanGraph removes all previously loaded nodes and relationships.
func (l *Loader) CleanGraph(ctx context.Context) error {
	slog.Info("cleaning existing graph data")
	queries := []string{
		"MATCH ()-[r:DEPENDS_ON]->() DELETE r",
		"MATCH ()-[r:CALLS]->() DELETE r",
		"MATCH (n:Package) DETACH DELETE n",
		"MATCH (n:Function) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := l.runner.run(ctx, q, nil); err != nil {
			return fmt.Errorf("clean graph: %w", err)
		}
	}
	return nil
}

// CreateIndexes ensures the lookup indexes exist.
func (l *Loader) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX package_key IF NOT EXISTS FOR (n:Package) ON (n.key)",
		"CREATE INDEX function_qualified_name IF NOT EXISTS FOR (n:Function) ON (n.qualified_name)",
	}
	for _, q := range indexes {
		if err := l.runner.run(ctx, q, nil); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
	}
	return nil
}

// Prepare optionally cleans the database and then creates the indexes.
func (l *Loader) Prepare(ctx context.Context, clean bool) error {
	if clean {
		if err := l.CleanGraph(ctx); err != nil {
			return err
		}
	}
	return l.CreateIndexes(ctx)
}

// unwind runs cypher once per batch of rows, bound to $batch.
func (l *Loader) unwind(ctx context.Context, cypher string, rows []map[string]any) error {
	size := l.batchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		if err := l.runner.run(ctx, cypher, map[string]any{"batch": rows[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

const (
	mergePackages = `UNWIND $batch AS row
		 MERGE (n:Package {key: row.key})
		 SET n.name = row.name, n.version = row.version, n.workspace = row.workspace`

	mergeDependsOn = `UNWIND $batch AS row
		 MATCH (a:Package {key: row.from}), (b:Package {key: row.to})
		 MERGE (a)-[r:DEPENDS_ON]->(b)
		 SET r.kind = row.kind`

	mergeFunctions = `UNWIND $batch AS row
		 MERGE (n:Function {qualified_name: row.qualified_name})
		 SET n.name = row.name, n.file = row.file, n.line = row.line,
		     n.public = row.public, n.async = row.async, n.signature = row.signature`

	mergeCalls = `UNWIND $batch AS row
		 MATCH (a:Function {qualified_name: row.caller}), (b:Function {qualified_name: row.callee})
		 MERGE (a)-[r:CALLS]->(b)
		 SET r.kind = row.kind`
)

// LoadDeps upserts Package nodes and DEPENDS_ON relationships.
func (l *Loader) LoadDeps(ctx context.Context, g *deps.Graph) error {
	ctx, span := tracer.Start(ctx, "export.LoadDeps")
	defer span.End()

	nodes, edges := depRows(g)
	slog.Info("loading packages", slog.Int("nodes", len(nodes)), slog.Int("edges", len(edges)))
	if err := l.unwind(ctx, mergePackages, nodes); err != nil {
		return fmt.Errorf("load packages: %w", err)
	}
	if err := l.unwind(ctx, mergeDependsOn, edges); err != nil {
		return fmt.Errorf("load dependencies: %w", err)
	}
	return nil
}

// LoadCalls upserts Function nodes and CALLS relationships.
func (l *Loader) LoadCalls(ctx context.Context, g *calls.Graph) error {
	ctx, span := tracer.Start(ctx, "export.LoadCalls")
	defer span.End()

	nodes, edges := callRows(g)
	slog.Info("loading functions", slog.Int("nodes", len(nodes)), slog.Int("edges", len(edges)))
	if err := l.unwind(ctx, mergeFunctions, nodes); err != nil {
		return fmt.Errorf("load functions: %w", err)
	}
	if err := l.unwind(ctx, mergeCalls, edges); err != nil {
		return fmt.Errorf("load calls: %w", err)
	}
	return nil
}

func depRows(g *deps.Graph) (nodes, edges []map[string]any) {
	nodes = make([]map[string]any, 0, g.Len())
	for _, id := range g.Nodes() {
		n := g.Node(id)
		nodes = append(nodes, map[string]any{
			"key":       g.Key(id),
			"name":      n.Name,
			"version":   n.Version,
			"workspace": n.Workspace,
		})
	}
	edges = make([]map[string]any, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		from, to, kind := g.Edge(e)
		edges = append(edges, map[string]any{
			"from": g.Key(from),
			"to":   g.Key(to),
			"kind": kind.String(),
		})
	}
	return nodes, edges
}

func callRows(g *calls.Graph) (nodes, edges []map[string]any) {
	nodes = make([]map[string]any, 0, g.Len())
	for _, id := range g.Nodes() {
		n := g.Node(id)
		nodes = append(nodes, map[string]any{
			"qualified_name": n.QualifiedName,
			"name":           n.Name,
			"file":           n.File,
			"line":           n.Line,
			"public":         n.Public,
			"async":          n.Async,
			"signature":      n.Signature,
		})
	}
	edges = make([]map[string]any, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		from, to, kind := g.Edge(e)
		edges = append(edges, map[string]any{
			"caller": g.Node(from).QualifiedName,
			"callee": g.Node(to).QualifiedName,
			"kind":   kind.String(),
		})
	}
	return nodes, edges
}
