package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kms7530/rust-grapher/internal/config"
	"github.com/kms7530/rust-grapher/internal/deps"
	"github.com/kms7530/rust-grapher/internal/export"
	"github.com/kms7530/rust-grapher/internal/graph"
	"github.com/kms7530/rust-grapher/internal/render"
	"github.com/kms7530/rust-grapher/internal/resolve"
)

// Dependency granularity for Go manifests.
const (
	levelModules  = "modules"
	levelPackages = "packages"
)

// depsOptions is everything the deps command needs, validated as a whole.
type depsOptions struct {
	Manifest string `validate:"required"`
	Level    string `validate:"oneof=modules packages"`
	ModCache string
	Std      bool

	Package      string
	Focus        string
	FocusDepth   int `validate:"gte=0"`
	ReportCycles bool

	Build  deps.Options
	Render render.Options
}

func (a *app) depsCommand() *cobra.Command {
	var (
		o     depsOptions
		rf    renderFlags
		neo4j neo4jFlags
	)
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Analyze the package dependency graph (module mode)",
		Long: `Build the dependency graph of a Cargo workspace (Cargo.toml), a Go module
(go.mod) or a Go workspace (go.work) and render it.

Traversal starts at the workspace members, or at the packages named by
--package. Patterns given to --exclude and --include accept '*' wildcards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.Render = rf.options()
			if err := config.Validate(&o); err != nil {
				return err
			}
			neo, err := neo4j.config()
			if err != nil {
				return err
			}

			g, err := runDeps(cmd.Context(), &o)
			if err != nil {
				return err
			}
			if o.ReportCycles {
				reportCycles(cmd, g)
			}

			out, err := render.Deps(g, o.Render)
			if err != nil {
				return err
			}
			if err := rf.write(cmd, out); err != nil {
				return err
			}

			if neo != nil {
				return neo4j.load(cmd.Context(), neo, func(l *export.Loader) error {
					return l.LoadDeps(cmd.Context(), g)
				})
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&o.Manifest, "manifest-path", "m", "Cargo.toml", "path to Cargo.toml, go.mod or go.work")
	fs.StringVar(&o.Level, "level", levelModules, "Go graph granularity: modules or packages")
	fs.StringVar(&o.ModCache, "mod-cache", "", "Go module cache (default $GOMODCACHE)")
	fs.BoolVar(&o.Std, "std", false, "keep standard library packages (--level packages)")
	fs.StringVarP(&o.Package, "package", "p", "", "start from this package instead of the workspace members")
	fs.IntVar(&o.Build.MaxDepth, "depth", 0, "maximum dependency depth (0 = unlimited)")
	fs.BoolVar(&o.Build.NoDev, "no-dev", false, "exclude dev-dependencies")
	fs.BoolVar(&o.Build.NoBuild, "no-build", false, "exclude build-dependencies")
	fs.StringSliceVarP(&o.Build.Exclude, "exclude", "e", nil, "exclude packages matching pattern (repeatable)")
	fs.StringSliceVarP(&o.Build.Include, "include", "i", nil, "include only packages matching pattern (repeatable)")
	fs.BoolVar(&o.Build.WorkspaceOnly, "workspace-only", false, "show only workspace members")
	fs.BoolVar(&o.Build.NoTransitive, "no-transitive", false, "show only direct dependencies")
	fs.BoolVar(&o.Build.Dedup, "dedup", false, "show each package only once")
	fs.StringVar(&o.Focus, "focus", "", "show only packages connected to this package")
	fs.IntVar(&o.FocusDepth, "focus-depth", 0, "hops kept around the focus package (0 = unlimited)")
	fs.BoolVar(&o.ReportCycles, "report-cycles", false, "list dependency cycles on stderr")
	fs.BoolVarP(&rf.opts.ShowVersions, "show-versions", "v", false, "show version numbers with package names")
	fs.BoolVar(&rf.opts.GroupByKind, "group-by-kind", false, "group dependencies by kind using subgraphs")
	rf.register(cmd)
	neo4j.register(cmd)
	return cmd
}

// runDeps resolves metadata and builds the reduced dependency graph.
func runDeps(ctx context.Context, o *depsOptions) (*deps.Graph, error) {
	md, err := resolveMetadata(ctx, o)
	if err != nil {
		return nil, err
	}
	roots, err := deps.SelectRoots(md, o.Package)
	if err != nil {
		return nil, err
	}
	res, err := deps.BuildGraph(ctx, md, roots, o.Build)
	if err != nil {
		return nil, err
	}

	if o.Focus != "" {
		found, err := deps.Focus(ctx, res.Graph, o.Focus, o.FocusDepth)
		if err != nil {
			return nil, err
		}
		if !found {
			slog.Warn("focus package not found, graph left unchanged", slog.String("focus", o.Focus))
		}
	}
	return res.Graph, nil
}

func resolveMetadata(ctx context.Context, o *depsOptions) (*deps.Metadata, error) {
	switch filepath.Base(o.Manifest) {
	case "go.mod", "go.work":
		if o.Level == levelPackages {
			return resolve.Packages(ctx, resolve.PackagesOptions{Dir: filepath.Dir(o.Manifest), Std: o.Std})
		}
		return resolve.Modules(ctx, o.Manifest, resolve.ModulesOptions{ModCache: o.ModCache})
	default:
		return resolve.Cargo(ctx, o.Manifest)
	}
}

func reportCycles(cmd *cobra.Command, g *deps.Graph) {
	cycles := graph.Cycles(g)
	if len(cycles) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No dependency cycles.")
		return
	}
	for _, members := range cycles {
		names := make([]string, 0, len(members))
		for _, id := range members {
			names = append(names, g.Node(id).Name)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "cycle: %s\n", strings.Join(names, ", "))
	}
}
