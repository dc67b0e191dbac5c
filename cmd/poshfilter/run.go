// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/poshfilter/poshfilter/internal/app/filter"
	"github.com/poshfilter/poshfilter/internal/fsutil"
	"github.com/poshfilter/poshfilter/internal/tui"
	"github.com/poshfilter/poshfilter/pkg/fragment"
)

// stdinName is the file argument that reads the document from stdin.
const stdinName = "-"

var errPipelineRequired = errors.New("no pipeline given: pass one with --pipeline or run from a terminal")

type (
	// selectionFlags choose the fragments of a document.
	selectionFlags struct {
		lines    []string
		split    string
		match    string
		eachLine bool
	}

	// surface is a fragment surface that can render its document.
	surface interface {
		fragment.Surface
		String() string
	}

	// emptySurface is a document with nothing selected.
	emptySurface string

	runFlags struct {
		pipeline string
		inPlace  bool
		sel      selectionFlags
	}
)

func newRunCommand(app *App) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Filter a document through a pipeline",
		Long: `Filter a document through a PowerShell pipeline.

The document is read from the file argument, or from stdin when the argument
is "-" or missing. Without selection flags the whole document is one fragment.
The filtered document is written to stdout, or back to the file with
--in-place.

When no pipeline is given and stdin is a terminal, poshfilter prompts for
one. Entering !h picks a previous pipeline from the history and !mkh saves
the history.`,
		Example: `  poshfilter run notes.txt -e '%{ $_.ToUpper() }'
  poshfilter run notes.txt --each-line -e '%{ $_.Trim() }'
  cat data.csv | poshfilter run --split ',' -e '%{ [int]$_ * 2 }'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runFilter(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.pipeline, "pipeline", "e", "", "pipeline to run; $_ holds each fragment")
	cmd.Flags().BoolVarP(&flags.inPlace, "in-place", "i", false, "write the result back to the file")
	addSelectionFlags(cmd, &flags.sel)
	return cmd
}

// addSelectionFlags registers the mutually exclusive fragment selectors.
func addSelectionFlags(cmd *cobra.Command, sel *selectionFlags) {
	cmd.Flags().StringArrayVarP(&sel.lines, "lines", "l", nil, "select line N or lines N-M (repeatable)")
	cmd.Flags().StringVar(&sel.split, "split", "", "select the pieces between occurrences of a separator")
	cmd.Flags().StringVar(&sel.match, "match", "", "select every match of a regular expression")
	cmd.Flags().BoolVar(&sel.eachLine, "each-line", false, "select every line")
	cmd.MarkFlagsMutuallyExclusive("lines", "split", "match", "each-line")
}

func (emptySurface) Selections() []fragment.Fragment { return nil }

func (emptySurface) Replace(f fragment.Fragment, _ string) error {
	return fmt.Errorf("%w: nothing is selected", fragment.ErrStaleFragment)
}

func (e emptySurface) String() string { return string(e) }

// spans returns the selected spans of text. Nil selects the whole text.
func (s selectionFlags) spans(text string) ([]fragment.Span, error) {
	switch {
	case len(s.lines) > 0:
		ranges := make([]fragment.LineRange, 0, len(s.lines))
		for _, l := range s.lines {
			r, err := fragment.ParseLineRange(l)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, r)
		}
		return fragment.Lines(text, ranges)
	case s.split != "":
		return fragment.Split(text, s.split), nil
	case s.match != "":
		re, err := regexp.Compile(s.match)
		if err != nil {
			return nil, fmt.Errorf("invalid --match expression: %w", err)
		}
		return fragment.Matches(text, re), nil
	case s.eachLine:
		return fragment.EachLine(text), nil
	}
	return nil, nil
}

// selected reports whether any selector flag was set.
func (s selectionFlags) selected() bool {
	return len(s.lines) > 0 || s.split != "" || s.match != "" || s.eachLine
}

// newSurface builds the fragment surface for text. A selector that
// matches nothing yields an empty surface rather than the whole document.
func (s selectionFlags) newSurface(text string) (surface, error) {
	spans, err := s.spans(text)
	if err != nil {
		return nil, err
	}
	if s.selected() && len(spans) == 0 {
		return emptySurface(text), nil
	}
	return fragment.NewBuffer(text, spans...)
}

func (a *App) runFilter(cmd *cobra.Command, args []string, flags runFlags) error {
	path := stdinName
	if len(args) == 1 {
		path = args[0]
	}
	if flags.inPlace && path == stdinName {
		return errors.New("--in-place needs a file argument")
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

	var outcome *filter.Outcome
	switch {
	case flags.pipeline != "":
		outcome, err = f.Submit(cmd.Context(), buf, flags.pipeline)
	case path != stdinName && tui.IsInputTerminal():
		outcome, err = f.Invoke(cmd.Context(), buf, "")
	default:
		return errPipelineRequired
	}
	if err != nil {
		return newExitError(err)
	}
	if outcome.Action != filter.ActionApplied && flags.inPlace {
		return nil
	}
	return a.writeDocument(path, flags.inPlace, buf.String())
}

func (a *App) readDocument(path string) (string, error) {
	if path == stdinName {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

func (a *App) writeDocument(path string, inPlace bool, text string) error {
	if !inPlace {
		_, err := io.WriteString(a.stdout, text)
		return err
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := fsutil.AtomicWrite(path, []byte(text), perm); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	a.logger.Debug("document rewritten", "path", path)
	return nil
}
