// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/poshfilter/poshfilter/internal/app/filter"
)

const (
	// ThemeCharm uses the Charm theme.
	ThemeCharm Theme = "charm"
	// ThemeDracula uses the Dracula theme.
	ThemeDracula Theme = "dracula"
	// ThemeCatppuccin uses the Catppuccin theme.
	ThemeCatppuccin Theme = "catppuccin"
	// ThemeBase16 uses the Base16 theme.
	ThemeBase16 Theme = "base16"
	// ThemeBase uses the plain huh theme.
	ThemeBase Theme = "base"
)

type (
	// Theme represents the visual theme for forms.
	Theme string

	// Config holds common configuration for TUI components.
	Config struct {
		Theme Theme
		// Accessible replaces the full-screen forms with line prompts.
		Accessible bool
		// Input is read by the forms. Nil means os.Stdin.
		Input io.Reader
		// Output receives the forms. Nil means os.Stderr so the forms
		// never mix with filtered text written to stdout.
		Output io.Writer
	}
)

// DefaultConfig returns the configuration for the current terminal.
// Accessible mode is enabled when stdin is not a terminal or the
// ACCESSIBLE environment variable is set.
func DefaultConfig(theme Theme) Config {
	return Config{
		Theme:      theme,
		Accessible: !IsInputTerminal() || os.Getenv("ACCESSIBLE") != "",
	}
}

// IsInputTerminal reports whether stdin is connected to a terminal.
func IsInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsOutputTerminal reports whether f is connected to a terminal.
func IsOutputTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// form wraps fields in a single-group form configured from cfg.
func form(cfg Config, fields ...huh.Field) *huh.Form {
	f := huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huhTheme(cfg.Theme)).
		WithAccessible(cfg.Accessible).
		WithShowHelp(!cfg.Accessible)
	if cfg.Input != nil {
		f = f.WithInput(cfg.Input)
	}
	if cfg.Output != nil {
		f = f.WithOutput(cfg.Output)
	} else {
		f = f.WithOutput(os.Stderr)
	}
	return f
}

// huhTheme converts a Theme to a huh.Theme.
func huhTheme(t Theme) *huh.Theme {
	switch t {
	case ThemeDracula:
		return huh.ThemeDracula()
	case ThemeCatppuccin:
		return huh.ThemeCatppuccin()
	case ThemeBase16:
		return huh.ThemeBase16()
	case ThemeBase:
		return huh.ThemeBase()
	default:
		return huh.ThemeCharm()
	}
}

// mapAbort turns a dismissed form into filter.ErrCanceled.
func mapAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, huh.ErrTimeout) {
		return filter.ErrCanceled
	}
	return err
}
