// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/huh"
)

type (
	// Prompter asks for the pipeline with a huh input field.
	Prompter struct {
		cfg Config
	}

	// Selector lets the user pick a history entry with a huh select list.
	Selector struct {
		cfg Config
		// height caps the number of visible entries.
		height int
	}
)

// NewPrompter creates a Prompter.
func NewPrompter(cfg Config) *Prompter {
	return &Prompter{cfg: cfg}
}

// Prompt shows a single-line input pre-filled with initial.
func (p *Prompter) Prompt(ctx context.Context, label, initial string) (string, error) {
	value := initial
	input := huh.NewInput().
		Title(label).
		Prompt("> ").
		Placeholder("%{ $_ }").
		Value(&value)
	if err := form(p.cfg, input).RunWithContext(ctx); err != nil {
		return "", mapAbort(err)
	}
	return strings.TrimRight(value, "\r\n"), nil
}

// NewSelector creates a Selector showing at most height entries at once.
// A non-positive height lets huh size the list.
func NewSelector(cfg Config, height int) *Selector {
	return &Selector{cfg: cfg, height: height}
}

// Select shows items, most recent first, and returns the chosen one.
func (s *Selector) Select(ctx context.Context, title string, items []string) (string, error) {
	var choice string
	sel := huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(items...)...).
		Filtering(true).
		Value(&choice)
	if s.height > 0 {
		sel = sel.Height(s.height)
	}
	if err := form(s.cfg, sel).RunWithContext(ctx); err != nil {
		return "", mapAbort(err)
	}
	return choice, nil
}
