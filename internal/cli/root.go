// Package cli implements the rust-grapher command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kms7530/rust-grapher/internal/config"
	"github.com/kms7530/rust-grapher/internal/export"
	"github.com/kms7530/rust-grapher/internal/render"
	"github.com/kms7530/rust-grapher/internal/telemetry"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	version    string
	configPath string
	telemetry  telemetry.Config
	shutdown   func(context.Context) error
}

// Execute runs the command line with args and reports the first error. The
// rendered graph goes to stdout; logs and notices go to stderr.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) error {
	a := &app{version: version}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.shutdown != nil {
		if serr := a.shutdown(context.WithoutCancel(ctx)); serr != nil && err == nil {
			err = fmt.Errorf("shutdown telemetry: %w", serr)
		}
	}
	return err
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "rust-grapher",
		Short:   "Generate dependency and function call graphs",
		Version: a.version,
		Long: `rust-grapher analyzes Rust and Go projects and generates graphs in
Mermaid, DOT or JSON.

Examples:
  # Dependency graph of a Cargo workspace
  rust-grapher deps
  rust-grapher deps --depth 2 -o deps.md
  rust-grapher deps --workspace-only

  # Module graph of a Go module
  rust-grapher deps -m go.mod --no-build

  # Function call graph
  rust-grapher fn-graph
  rust-grapher fn-graph --focus main --depth 3
  rust-grapher fn-graph -f dot | dot -Tpng -o call-graph.png`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			f, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if err := f.Apply(cmd.Name(), cmd.Flags()); err != nil {
				return err
			}

			shutdown, err := telemetry.Init(cmd.Context(), cmd.ErrOrStderr(), a.telemetry)
			if err != nil {
				return err
			}
			a.shutdown = shutdown
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "configuration file (default "+config.DefaultFile+" if present)")
	pf.BoolVar(&a.telemetry.Verbose, "verbose", false, "log debug details to stderr")
	pf.BoolVarP(&a.telemetry.Quiet, "quiet", "q", false, "only log warnings and errors")
	pf.BoolVar(&a.telemetry.TraceStdout, "trace-stdout", false, "export trace spans to stderr")
	a.telemetry.Version = a.version

	root.AddCommand(a.depsCommand(), a.fnGraphCommand())
	return root
}

// renderFlags are the display flags shared by both commands.
type renderFlags struct {
	opts   render.Options
	format string
	theme  string
	output string
}

func (r *renderFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&r.output, "output", "o", "", "output file path (stdout if not specified)")
	fs.StringVarP(&r.format, "format", "f", string(render.Mermaid), "output format: mermaid, dot or json")
	fs.BoolVar(&r.opts.NoFence, "no-fence", false, "omit code fence markers (```mermaid)")
	fs.StringVarP(&r.opts.Direction, "direction", "d", "LR", "graph direction: LR, RL, TB, BT or TD")
	fs.StringVar(&r.theme, "theme", string(render.ThemeDefault), "color theme: default, light or dark")
	fs.StringSliceVarP(&r.opts.Highlight, "highlight", "H", nil, "highlight nodes by name (repeatable)")
}

// options returns the render options once flags and configuration are
// applied.
func (r *renderFlags) options() render.Options {
	o := r.opts
	o.Format = render.Format(r.format)
	o.Theme = render.Theme(r.theme)
	return o
}

// write sends out to the output file, or to stdout when none is set.
func (r *renderFlags) write(cmd *cobra.Command, out string) error {
	if r.output == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(r.output, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Graph written to: %s\n", r.output)
	return nil
}

// neo4jFlags configure the optional export to Neo4j.
type neo4jFlags struct {
	cfg export.Config
}

func (n *neo4jFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&n.cfg.URI, "neo4j-uri", "", "load the graph into Neo4j at this bolt URI")
	fs.StringVar(&n.cfg.User, "neo4j-user", "neo4j", "Neo4j username")
	fs.StringVar(&n.cfg.Password, "neo4j-password", "", "Neo4j password (default $NEO4J_PASSWORD)")
	fs.StringVar(&n.cfg.Database, "neo4j-database", "", "Neo4j database (server default if empty)")
	fs.BoolVar(&n.cfg.Clean, "neo4j-clean", false, "delete previously loaded graph data first")
	fs.IntVar(&n.cfg.BatchSize, "neo4j-batch-size", export.DefaultBatchSize, "rows per UNWIND statement")
}

// config returns the export configuration, or nil when export is off.
func (n *neo4jFlags) config() (*export.Config, error) {
	if n.cfg.URI == "" {
		return nil, nil
	}
	cfg := n.cfg
	if cfg.Password == "" {
		_ = godotenv.Load()
		cfg.Password = os.Getenv("NEO4J_PASSWORD")
	}
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// load connects to Neo4j, prepares the database and runs fn with the loader.
func (n *neo4jFlags) load(ctx context.Context, cfg *export.Config, fn func(*export.Loader) error) error {
	loader, err := export.NewLoader(ctx, *cfg)
	if err != nil {
		return err
	}
	defer loader.Close(ctx)

	if err := loader.Prepare(ctx, cfg.Clean); err != nil {
		return err
	}
	return fn(loader)
}
