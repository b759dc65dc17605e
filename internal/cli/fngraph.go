package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kms7530/rust-grapher/internal/calls"
	"github.com/kms7530/rust-grapher/internal/config"
	"github.com/kms7530/rust-grapher/internal/export"
	"github.com/kms7530/rust-grapher/internal/parse"
	"github.com/kms7530/rust-grapher/internal/render"
	"github.com/kms7530/rust-grapher/internal/watch"
)

// watchCacheSize bounds the parsed files kept between watch-mode runs.
const watchCacheSize = 4096

type fnGraphOptions struct {
	Source   string `validate:"required"`
	Language string `validate:"oneof=rust go"`
	Focus    string
	Depth    int `validate:"gte=0"`

	Watch    bool
	Debounce time.Duration `validate:"gte=0"`

	Parse    parse.Options
	Assemble calls.Options
	Render   render.Options
}

func (a *app) fnGraphCommand() *cobra.Command {
	var (
		o     fnGraphOptions
		rf    renderFlags
		neo4j neo4jFlags
	)
	cmd := &cobra.Command{
		Use:   "fn-graph",
		Short: "Analyze the function call graph (function mode)",
		Long: `Parse the sources under --source-dir and render the calls between the
functions defined there.

Calls are resolved by name only: a call to a short name attaches to the last
function seen with that name, and calls to anything not defined in the tree
are dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.Parse.Language = parse.Language(o.Language)
			o.Render = rf.options()
			o.Render.ShowSignatures = o.Assemble.ShowSignatures
			if err := config.Validate(&o); err != nil {
				return err
			}
			neo, err := neo4j.config()
			if err != nil {
				return err
			}

			once := func(ctx context.Context) error {
				g, err := runFnGraph(ctx, &o)
				if err != nil {
					return err
				}
				out, err := render.Calls(g, o.Render)
				if err != nil {
					return err
				}
				if err := rf.write(cmd, out); err != nil {
					return err
				}
				if neo != nil {
					return neo4j.load(ctx, neo, func(l *export.Loader) error {
						return l.LoadCalls(ctx, g)
					})
				}
				return nil
			}

			if !o.Watch {
				return once(cmd.Context())
			}
			return watchFnGraph(cmd.Context(), &o, once)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&o.Source, "source-dir", "s", "src", "source directory to analyze")
	fs.StringVar(&o.Language, "lang", string(parse.Rust), "source language: rust or go")
	fs.StringVar(&o.Focus, "focus", "", "show only functions connected to this function")
	fs.IntVar(&o.Depth, "depth", 0, "maximum call depth around the focus (0 = unlimited)")
	fs.StringSliceVarP(&o.Assemble.Exclude, "exclude", "e", nil, "exclude functions matching pattern (repeatable)")
	fs.BoolVar(&o.Assemble.PublicOnly, "public-only", false, "include only public functions")
	fs.BoolVar(&o.Assemble.ShowSignatures, "show-signatures", false, "show function signatures")
	fs.StringSliceVar(&o.Parse.Skip, "skip", nil, "skip files and directories matching glob (repeatable)")
	fs.IntVar(&o.Parse.Workers, "workers", 0, "files parsed in parallel (0 = one per CPU)")
	fs.BoolVar(&o.Parse.Tests, "tests", false, "include Go test files")
	fs.BoolVarP(&o.Watch, "watch", "w", false, "re-render whenever a source file changes")
	fs.DurationVar(&o.Debounce, "debounce", watch.DefaultDebounce, "quiet period before re-rendering in watch mode")
	rf.register(cmd)
	neo4j.register(cmd)
	return cmd
}

// runFnGraph parses the source tree and builds the reduced call graph.
func runFnGraph(ctx context.Context, o *fnGraphOptions) (*calls.Graph, error) {
	res, err := parse.Collect(ctx, o.Source, o.Parse)
	if err != nil {
		return nil, err
	}
	if len(res.Skipped) > 0 {
		slog.Info("some files could not be parsed", slog.Int("skipped", len(res.Skipped)))
	}

	g := calls.Assemble(ctx, res.Functions, res.Calls, o.Assemble)
	if o.Focus != "" {
		found, err := calls.Focus(ctx, g, o.Focus, o.Parse.Language.Separator(), o.Depth)
		if err != nil {
			return nil, err
		}
		if !found {
			slog.Warn("focus function not found, graph left unchanged", slog.String("focus", o.Focus))
		}
	}
	return g, nil
}

// watchFnGraph renders once, then again after every batch of source changes
// until ctx is done. Failed re-runs are logged and the watch continues.
func watchFnGraph(ctx context.Context, o *fnGraphOptions, once func(context.Context) error) error {
	cache, err := parse.NewCache(watchCacheSize)
	if err != nil {
		return err
	}
	o.Parse.Cache = cache

	filter, err := parse.NewFilter(o.Source, o.Parse)
	if err != nil {
		return err
	}

	if err := once(ctx); err != nil {
		return err
	}
	return watch.Run(ctx, o.Source, watchOptions(filter, o.Debounce), func(ctx context.Context, paths []string) error {
		slog.Info("sources changed, rebuilding", slog.Int("files", len(paths)))
		if err := once(ctx); err != nil {
			slog.Error("rebuild failed", slog.Any("error", err))
		}
		return nil
	})
}

// watchOptions limits watching to the files and directories a run parses.
func watchOptions(filter *parse.Filter, debounce time.Duration) watch.Options {
	return watch.Options{
		Debounce: debounce,
		SkipDir:  filter.SkipDir,
		Relevant: filter.Wanted,
	}
}
