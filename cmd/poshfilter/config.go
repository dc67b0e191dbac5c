// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poshfilter/poshfilter/internal/config"
	"github.com/poshfilter/poshfilter/internal/issue"
)

func newConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage poshfilter configuration",
		Long: `Manage poshfilter configuration.

Configuration is stored in CUE format at:
  - Linux: ~/.config/poshfilter/config.cue
  - macOS: ~/Library/Application Support/poshfilter/config.cue
  - Windows: %APPDATA%\poshfilter\config.cue

Every key can be overridden with an environment variable named after it,
such as POSHFILTER_SCRIPT_TRANSPORT=base64.`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a default configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig(app.flags.configFile, force)
			if errors.Is(err, config.ErrConfigExists) {
				return issue.NewErrorContext().
					WithOperation("create configuration").
					WithResource(path).
					WithSuggestion("Pass --force to overwrite it").
					Wrap(err).
					BuildError()
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(app.stderr, "%s %s\n", SuccessStyle.Render("Created"), CmdStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			out, err := config.Dump(app.cfg, format)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(app.stdout, out)
			return nil
		},
	}
	dumpCmd.Flags().StringVar(&format, "format", config.FormatCUE, "output format: cue, toml or json")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show where the configuration comes from and its values",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				source := app.cfg.Source()
				if source == "" {
					source = "defaults"
				}
				_, _ = fmt.Fprintf(app.stderr, "%s %s\n\n", TitleStyle.Render("Source:"), CmdStyle.Render(source))
				_, _ = fmt.Fprint(app.stdout, config.GenerateCUE(app.cfg))
				return nil
			},
		},
		&cobra.Command{
			Use:         "path",
			Short:       "Print the configuration file path",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{skipConfigAnnotation: "true"},
			RunE: func(_ *cobra.Command, _ []string) error {
				path := app.flags.configFile
				if path == "" {
					var err error
					if path, err = config.ConfigFilePath(); err != nil {
						return err
					}
				}
				_, _ = fmt.Fprintln(app.stdout, path)
				return nil
			},
		},
		initCmd,
		dumpCmd,
	)
	return cmd
}
