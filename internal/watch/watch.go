// Package watch re-runs a callback when files under a directory tree change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must stay quiet before a batch of
// changes is reported.
const DefaultDebounce = 200 * time.Millisecond

// ErrNotDirectory is returned when the watched root is not a directory.
var ErrNotDirectory = errors.New("watch root is not a directory")

// Options configures Run.
type Options struct {
	Debounce time.Duration
	// SkipDir reports directories below the root that are not watched.
	SkipDir func(path string) bool
	// Relevant reports whether a change to path should trigger the callback.
	// Nil accepts every file.
	Relevant func(path string) bool
}

// Run watches root recursively and calls onChange with the sorted paths that
// changed during each quiet period. Directories created while watching are
// added. Run blocks until ctx is done, the watcher fails, or onChange returns
// an error.
func Run(ctx context.Context, root string, opts Options, onChange func(ctx context.Context, paths []string) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	t := &tree{w: w, opts: opts, dirs: make(map[string]bool)}
	if _, err := t.add(root); err != nil {
		return err
	}
	slog.Info("watching for changes", slog.String("root", root))

	pending := make(map[string]bool)
	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	queue := func(paths ...string) {
		if len(paths) == 0 {
			return
		}
		for _, p := range paths {
			pending[p] = true
		}
		timer.Reset(opts.Debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			queue(t.handle(ev)...)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", slog.Any("error", err))

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			slog.Debug("changes detected", slog.Int("files", len(paths)))
			if err := onChange(ctx, paths); err != nil {
				return err
			}
		}
	}
}

// tree tracks the watched directories.
type tree struct {
	w    *fsnotify.Watcher
	opts Options
	dirs map[string]bool
}

// handle returns the paths an event invalidates.
func (t *tree) handle(ev fsnotify.Event) []string {
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if t.opts.SkipDir != nil && t.opts.SkipDir(ev.Name) {
				return nil
			}
			// A directory created or moved in may already hold sources.
			files, err := t.add(ev.Name)
			if err != nil {
				slog.Warn("cannot watch new directory", slog.String("dir", ev.Name), slog.Any("error", err))
			}
			return files
		}
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if t.dirs[ev.Name] {
			t.drop(ev.Name)
			return []string{ev.Name}
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return nil
	}
	if !t.relevant(ev.Name) {
		return nil
	}
	return []string{ev.Name}
}

func (t *tree) relevant(path string) bool {
	return t.opts.Relevant == nil || t.opts.Relevant(path)
}

// add watches dir and every directory below it, and returns the relevant
// files found there.
func (t *tree) add(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			if t.relevant(p) {
				files = append(files, p)
			}
			return nil
		}
		if p != dir && t.opts.SkipDir != nil && t.opts.SkipDir(p) {
			return fs.SkipDir
		}
		if err := t.w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		t.dirs[p] = true
		return nil
	})
	return files, err
}

// drop forgets dir and the directories below it. The kernel drops watches
// of removed directories; moved-out ones are removed here.
func (t *tree) drop(dir string) {
	prefix := dir + string(filepath.Separator)
	for p := range t.dirs {
		if p == dir || strings.HasPrefix(p, prefix) {
			delete(t.dirs, p)
			_ = t.w.Remove(p)
		}
	}
}
