// Package parse extracts function definitions and call sites from a source
// tree. Files are parsed in parallel and merged in path order.
package parse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kms7530/rust-grapher/internal/calls"
)

var tracer = otel.Tracer("rust-grapher/parse")

// ErrSourceNotFound is returned when the source root does not exist or is
// not a directory.
var ErrSourceNotFound = errors.New("source directory not found")

// Language selects the parser used for a source tree.
type Language string

const (
	Rust Language = "rust"
	Go   Language = "go"
)

// Separator is the qualified-name separator of the language.
func (l Language) Separator() string {
	if l == Go {
		return "."
	}
	return "::"
}

// Facts holds what was extracted from one file.
type Facts struct {
	Functions []calls.Function
	Calls     []calls.Call
}

// Options configures Collect.
type Options struct {
	Language Language `validate:"omitempty,oneof=rust go"`
	// Skip holds globs matched against the slash-separated path relative to
	// the root and against the base name.
	Skip []string
	// Workers bounds parallel parsing. Zero means one per CPU.
	Workers int `validate:"gte=0"`
	// Tests includes Go _test.go files.
	Tests bool
	Cache *Cache
}

// Result is the merged output of Collect.
type Result struct {
	Functions []calls.Function
	Calls     []calls.Call
	// Files is the number of files parsed successfully.
	Files int
	// Skipped lists files that could not be read or parsed.
	Skipped []string
}

// Collect walks root and extracts facts from every source file of the
// selected language. Unreadable or unparsable files are skipped.
func Collect(ctx context.Context, root string, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "parse.Collect")
	defer span.End()

	if opts.Language == "" {
		opts.Language = Rust
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, root)
	}

	files, err := walk(root, opts)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("files", len(files)))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]*Facts, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			facts, err := parseCached(gctx, root, rel, opts)
			if err != nil {
				slog.Debug("skipping file", slog.String("file", rel), slog.Any("error", err))
				return nil
			}
			results[i] = facts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	for i, facts := range results {
		if facts == nil {
			res.Skipped = append(res.Skipped, files[i])
			span.AddEvent("file skipped", trace.WithAttributes(attribute.String("file", files[i])))
			continue
		}
		res.Files++
		res.Functions = append(res.Functions, facts.Functions...)
		res.Calls = append(res.Calls, facts.Calls...)
	}

	slog.Debug("sources parsed",
		slog.String("root", root),
		slog.Int("files", res.Files),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("functions", len(res.Functions)),
		slog.Int("calls", len(res.Calls)))
	return res, nil
}

func parseCached(ctx context.Context, root, rel string, opts Options) (*Facts, error) {
	path := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey{path: path, modTime: info.ModTime().UnixNano(), size: info.Size(), lang: opts.Language}
	if facts, ok := opts.Cache.get(key); ok {
		return facts, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	facts, err := File(ctx, opts.Language, rel, src)
	if err != nil {
		return nil, err
	}
	opts.Cache.put(key, facts)
	return facts, nil
}

// File extracts facts from the source of one file. rel is recorded as the
// file of every function.
func File(ctx context.Context, lang Language, rel string, src []byte) (*Facts, error) {
	switch lang {
	case Go:
		return parseGo(rel, src)
	case Rust, "":
		return parseRust(ctx, rel, src)
	default:
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
}
