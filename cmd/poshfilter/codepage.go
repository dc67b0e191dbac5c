// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/issue"
)

func newCodePageCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "codepage",
		Short: "Print the code page used to decode interpreter errors",
		Long: `Resolve the code page that interpreter diagnostics are decoded with, the
same way a pipeline run does. Results are always exchanged as UTF-8; only
stderr depends on the console code page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := app.cfg.CodecOptions()
			set, err := codec.NewResolver(opts).Resolve(cmd.Context())
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("resolve code page").
					WithResource(opts.StderrCodePage).
					WithIssue(issue.CodePageUnresolvedId).
					WithSuggestion("Set codec.stderr_code_page to an explicit code page such as 437").
					Wrap(err).
					BuildError()
			}
			_, _ = fmt.Fprintln(app.stdout, set.StderrCodePage)
			app.logger.Debug("code page resolved", "source", opts.StderrCodePage)
			return nil
		},
	}
}
