// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poshfilter/poshfilter/internal/issue"
)

func newExplainCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [issue]",
		Short: "Explain a problem and how to fix it",
		Long: `Print the troubleshooting guide for an issue number. Without an argument,
list every known issue. Issue numbers are shown next to errors in verbose
mode.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listIssues(app.stdout)
			}
			n, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
			if err != nil {
				return fmt.Errorf("invalid issue number %q", args[0])
			}
			entry := issue.Get(issue.Id(n))
			if entry == nil {
				return fmt.Errorf("unknown issue %d; run 'poshfilter explain' to list them", n)
			}
			rendered, err := entry.Render(app.glamourStyle())
			if err != nil {
				return fmt.Errorf("render issue %d: %w", n, err)
			}
			_, err = io.WriteString(app.stdout, rendered)
			return err
		},
	}
}

// listIssues writes one line per catalog entry with its title.
func listIssues(w io.Writer) error {
	for _, entry := range issue.Values() {
		if _, err := fmt.Fprintf(w, "%3d  %s\n", entry.Id(), issueTitle(entry)); err != nil {
			return err
		}
	}
	return nil
}

// issueTitle returns the first markdown heading of an entry.
func issueTitle(entry *issue.Issue) string {
	for line := range strings.Lines(string(entry.MarkdownMsg())) {
		if title, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimRight(title, "!")
		}
	}
	return ""
}
