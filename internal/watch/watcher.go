// SPDX-License-Identifier: MPL-2.0

// Package watch re-filters documents when they change on disk.
//
// A Watcher monitors a directory tree, keeps the files matching its glob
// patterns and calls OnChange once per quiet period with every file that
// changed during it. Callbacks run one at a time on the Run goroutine;
// events arriving meanwhile are coalesced into the next call.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not set.
const DefaultDebounce = 300 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: already running")

// defaultIgnores are editor and VCS artifacts that never trigger a run.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swx",
	"**/*~",
	"**/.#*",
	"**/4913",
	"**/.DS_Store",
	"**/.*.tmp.*",
}

type (
	// Config configures a Watcher.
	Config struct {
		// Dir is the root of the watched tree. Empty means the working
		// directory.
		Dir string
		// Patterns are doublestar globs relative to Dir. Empty matches
		// every file.
		Patterns []string
		// Ignore are doublestar globs excluded in addition to the defaults.
		Ignore []string
		// Debounce is the quiet period before OnChange fires.
		Debounce time.Duration
		// OnChange receives the changed paths relative to Dir, sorted. A
		// returned error is logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error
		// Logger receives diagnostics. Nil discards them.
		Logger *log.Logger
	}

	// Watcher watches a directory tree. Run may be called once.
	Watcher struct {
		cfg      Config
		dir      string
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		fsw      *fsnotify.Watcher
		started  atomic.Bool
	}
)

// New validates cfg and registers every directory under Dir that is not
// ignored.
func New(cfg Config) (*Watcher, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", dir, err)
	}
	if err := validatePatterns("pattern", cfg.Patterns); err != nil {
		return nil, err
	}
	if err := validatePatterns("ignore pattern", cfg.Ignore); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		cfg:      cfg,
		dir:      abs,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
	}
	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Dir returns the absolute root of the watched tree.
func (w *Watcher) Dir() string { return w.dir }

// Matches reports whether rel, a slash-separated path relative to Dir,
// selects a file for OnChange.
func (w *Watcher) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	if matchAny(w.ignores, rel) {
		return false
	}
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

// Scan returns the files currently matching the patterns, sorted.
func (w *Watcher) Scan() ([]string, error) {
	patterns := w.cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"**"}
	}
	fsys := os.DirFS(w.dir)
	found := make(map[string]struct{})
	for _, pat := range patterns {
		matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("watch: scan %q: %w", pat, err)
		}
		for _, m := range matches {
			if !matchAny(w.ignores, m) {
				found[m] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(found)), nil
}

// Run dispatches debounced callbacks until ctx is canceled, which returns
// nil. Resource exhaustion in the notification backend is returned as an
// error; other backend errors are logged.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Debug("watcher not closed", "err", err)
		}
	}()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			if len(changed) == 0 || w.cfg.OnChange == nil {
				continue
			}
			w.logger.Debug("files changed", "count", len(changed))
			if err := w.cfg.OnChange(ctx, changed); err != nil && ctx.Err() == nil {
				w.logger.Error("change not handled", "err", err)
			}

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if evt.Has(fsnotify.Create) && w.isDir(evt.Name) {
				if err := w.addTree(evt.Name); err != nil {
					w.logger.Warn("new directory not watched", "dir", evt.Name, "err", err)
				}
				continue
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}
			rel, err := filepath.Rel(w.dir, evt.Name)
			if err != nil || !w.Matches(rel) {
				continue
			}
			pending[filepath.ToSlash(rel)] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isResourceExhausted(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// addTree registers root and its subdirectories, skipping ignored ones and
// the ones that cannot be read.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("path skipped", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(w.dir, path); relErr == nil && rel != "." && matchAny(w.ignores, filepath.ToSlash(rel)+"/") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(kind string, patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s %q", kind, pat)
		}
	}
	return nil
}
