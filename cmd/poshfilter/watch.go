// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/poshfilter/poshfilter/internal/app/filter"
	"github.com/poshfilter/poshfilter/internal/fsutil"
	"github.com/poshfilter/poshfilter/internal/watch"
)

type watchFlags struct {
	pipeline string
	outDir   string
	globs    []string
	ignore   []string
	debounce time.Duration
	initial  bool
	sel      selectionFlags
}

func newWatchCommand(app *App) *cobra.Command {
	var flags watchFlags
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-filter files whenever they change",
		Long: `Watch a directory and run the pipeline over every matching file that
changes, writing the filtered copy to the same relative path under --out-dir.

A failing pipeline is reported and the previous copy is kept. Press Ctrl+C
to stop.`,
		Example: `  poshfilter watch notes --glob '**/*.txt' --out-dir build -e '%{ $_.ToUpper() }'
  poshfilter watch . --glob '*.csv' --each-line --initial --out-dir out -e '%{ $_.Trim() }'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return app.runWatch(cmd.Context(), dir, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.pipeline, "pipeline", "e", "", "pipeline to run; $_ holds each fragment")
	cmd.Flags().StringVarP(&flags.outDir, "out-dir", "o", "", "directory receiving the filtered copies")
	cmd.Flags().StringArrayVarP(&flags.globs, "glob", "g", nil, "files to filter, as a ** glob relative to dir (repeatable)")
	cmd.Flags().StringArrayVar(&flags.ignore, "ignore", nil, "files to skip, as a ** glob relative to dir (repeatable)")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "quiet period before a run")
	cmd.Flags().BoolVar(&flags.initial, "initial", false, "filter every matching file once at startup")
	addSelectionFlags(cmd, &flags.sel)
	_ = cmd.MarkFlagRequired("pipeline")
	_ = cmd.MarkFlagRequired("out-dir")
	return cmd
}

func (a *App) runWatch(ctx context.Context, dir string, flags watchFlags) error {
	srcDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	outDir, err := filepath.Abs(flags.outDir)
	if err != nil {
		return err
	}
	if outDir == srcDir {
		return errors.New("--out-dir must differ from the watched directory")
	}
	ignore := flags.ignore
	if rel, err := filepath.Rel(srcDir, outDir); err == nil && !strings.HasPrefix(rel, "..") {
		// Filtered copies must not trigger another run.
		ignore = append(ignore, filepath.ToSlash(rel)+"/**")
	}

	f, err := a.newFilter()
	if err != nil {
		return err
	}
	job := &watchJob{app: a, filter: f, srcDir: srcDir, outDir: outDir, flags: flags}

	w, err := watch.New(watch.Config{
		Dir:      srcDir,
		Patterns: flags.globs,
		Ignore:   ignore,
		Debounce: flags.debounce,
		OnChange: job.filterFiles,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	if flags.initial {
		files, err := w.Scan()
		if err != nil {
			return err
		}
		if err := job.filterFiles(ctx, files); err != nil {
			a.logger.Error("initial pass incomplete", "err", err)
		}
	}

	_, _ = fmt.Fprintf(a.stderr, "%s %s %s %s\n",
		TitleStyle.Render("Watching"), CmdStyle.Render(srcDir),
		SubtitleStyle.Render("→"), CmdStyle.Render(outDir))
	return w.Run(ctx)
}

// watchJob filters changed files into the output directory.
type watchJob struct {
	app    *App
	filter *filter.Filter
	srcDir string
	outDir string
	flags  watchFlags
}

// filterFiles filters each file in turn. Pipeline failures were already
// notified and do not stop the batch.
func (j *watchJob) filterFiles(ctx context.Context, changed []string) error {
	var errs []error
	for _, rel := range changed {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := j.filterFile(ctx, rel); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
		}
	}
	return errors.Join(errs...)
}

func (j *watchJob) filterFile(ctx context.Context, rel string) error {
	src := filepath.Join(j.srcDir, filepath.FromSlash(rel))
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		j.app.logger.Debug("file removed", "path", rel)
		return nil
	}
	if err != nil {
		return err
	}

	surface, err := j.flags.sel.newSurface(string(data))
	if err != nil {
		return err
	}
	outcome, err := j.filter.Submit(ctx, surface, j.flags.pipeline)
	if err != nil {
		j.app.logger.Debug("file not filtered", "path", rel, "err", err)
		return nil
	}
	if outcome.Action != filter.ActionApplied {
		return nil
	}

	dst := filepath.Join(j.outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := fsutil.AtomicWrite(dst, []byte(surface.String()), 0o644); err != nil {
		return err
	}
	j.app.logger.Info("filtered", "path", rel)
	return nil
}
