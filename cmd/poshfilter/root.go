// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for poshfilter.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/poshfilter/poshfilter/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// skipConfigAnnotation marks commands that run without a valid
// configuration.
const skipConfigAnnotation = "poshfilter/skip-config"

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "poshfilter",
		Short: "Filter text through PowerShell pipelines",
		Long: TitleStyle.Render("poshfilter") + SubtitleStyle.Render(" - filter text through PowerShell pipelines") + `

poshfilter selects fragments of a text, runs each one through a PowerShell
pipeline in a separate process and replaces it with the pipeline's output.
The fragment is available as $_ (and $a) inside the pipeline.

` + SubtitleStyle.Render("Examples:") + `
  poshfilter run notes.txt -e '%{ $_.ToUpper() }'           Upper-case a whole file
  poshfilter run notes.txt --each-line -e '%{ $_.Trim() }'   Trim every line
  poshfilter run notes.txt --lines 3-5 --in-place -e 'sort'  Sort lines 3 to 5 in place
  poshfilter repl notes.txt                                  Prompt for pipelines interactively
  poshfilter history list                                    Show previous pipelines`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				app.loadConfigLenient(cmd.Context())
				return nil
			}
			return app.loadConfig(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&app.flags.quiet, "quiet", "q", false, "only report warnings and errors")
	rootCmd.PersistentFlags().StringVar(&app.flags.configFile, "config", "", "config file (default is <config dir>/poshfilter/config.cue)")

	rootCmd.AddCommand(
		newRunCommand(app),
		newReplCommand(app),
		newWatchCommand(app),
		newHistoryCommand(app),
		newConfigCommand(app),
		newCodePageCommand(app),
		newExplainCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process. It is called by main.main.
func Execute() {
	os.Exit(run(context.Background(), NewApp(os.Stdin, os.Stdout, os.Stderr)))
}

func run(ctx context.Context, app *App) int {
	err := fang.Execute(
		ctx,
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	)
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitPipeline
}

// handleError prints errors that the notifier has not already shown.
func (a *App) handleError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		if a.verbose() {
			a.renderIssue(w, classifyError(err))
		}
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.verbose()))
	if a.verbose() {
		a.renderIssue(w, classifyError(err))
	}
}

// renderIssue writes the catalog entry for id, if any.
func (a *App) renderIssue(w io.Writer, id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(a.glamourStyle())
	if err != nil {
		a.logger.Debug("issue not rendered", "id", id, "err", err)
		return
	}
	_, _ = io.WriteString(w, rendered)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
