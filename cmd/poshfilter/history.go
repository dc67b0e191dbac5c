// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the pipeline history",
		Long: `Manage the history of pipelines that ran successfully.

Interactive sessions record pipelines in memory; enter !mkh at the prompt to
save them. The history file holds one pipeline per line, most recent first.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved pipelines, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				store, err := app.loadHistory()
				if err != nil {
					return err
				}
				entries := store.Entries()
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(app.stderr, SubtitleStyle.Render("history is empty"))
					return nil
				}
				width := len(fmt.Sprint(len(entries)))
				for i, e := range entries {
					_, _ = fmt.Fprintf(app.stdout, "%*d  %s\n", width, i+1, CmdStyle.Render(e))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <pipeline>",
			Short: "Add a pipeline to the saved history",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				store, err := app.loadHistory()
				if err != nil {
					return err
				}
				if !store.Add(args[0]) {
					_, _ = fmt.Fprintln(app.stderr, WarningStyle.Render("pipeline not added: it is blank, multi-line or already present"))
					return nil
				}
				return store.Save()
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every saved pipeline",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				store, err := app.loadHistory()
				if err != nil {
					return err
				}
				store.Clear()
				if err := store.Save(); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(app.stderr, SuccessStyle.Render("history cleared"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the history file path",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				path, err := app.cfg.HistoryPath()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(app.stdout, path)
				return nil
			},
		},
	)
	return cmd
}
