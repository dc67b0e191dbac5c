// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/poshfilter/poshfilter/internal/app/filter"
	"github.com/poshfilter/poshfilter/internal/runtime"
	"github.com/poshfilter/poshfilter/internal/tui"
)

type replFlags struct {
	inPlace bool
	sel     selectionFlags
}

func newReplCommand(app *App) *cobra.Command {
	var flags replFlags
	cmd := &cobra.Command{
		Use:   "repl <file>",
		Short: "Filter a document interactively",
		Long: `Prompt for pipelines repeatedly and apply each one to the document.

A failed pipeline is offered again at the next prompt so it can be fixed.
Dismiss the prompt (Esc or Ctrl+C) to finish; the document is then written
to stdout, or back to the file with --in-place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runRepl(cmd, args[0], flags)
		},
	}
	cmd.Flags().BoolVarP(&flags.inPlace, "in-place", "i", false, "write the result back to the file")
	addSelectionFlags(cmd, &flags.sel)
	return cmd
}

func (a *App) runRepl(cmd *cobra.Command, path string, flags replFlags) error {
	if path == stdinName || !tui.IsInputTerminal() {
		return errors.New("repl needs a file argument and an interactive terminal")
	}
	text, err := a.readDocument(path)
	if err != nil {
		return err
	}
	buf, err := flags.sel.newSurface(text)
	if err != nil {
		return err
	}
	f, err := a.newFilter()
	if err != nil {
		return err
	}

	applied := 0
	for {
		outcome, err := f.Invoke(cmd.Context(), buf, "")
		if err != nil {
			var pipelineErr *runtime.PipelineError
			if errors.As(err, &pipelineErr) {
				continue
			}
			return newExitError(err)
		}
		if outcome.Action == filter.ActionCanceled {
			break
		}
		if outcome.Action == filter.ActionApplied {
			applied++
		}
	}

	a.logger.Debug("repl finished", "applied", applied)
	if applied == 0 && flags.inPlace {
		return nil
	}
	return a.writeDocument(path, flags.inPlace, buf.String())
}
