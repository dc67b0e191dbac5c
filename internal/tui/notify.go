// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/poshfilter/poshfilter/internal/app/filter"
)

// Palette shared with the CLI.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
)

// Notifier writes one styled status line per notification.
type Notifier struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[filter.Level]lipgloss.Style
	quiet  bool
}

// NewNotifier creates a Notifier writing to w with the given renderer,
// which decides whether colors are emitted. Quiet suppresses info
// messages.
func NewNotifier(w io.Writer, r *lipgloss.Renderer, quiet bool) *Notifier {
	if r == nil {
		r = lipgloss.NewRenderer(w)
	}
	return &Notifier{
		w:     w,
		quiet: quiet,
		styles: map[filter.Level]lipgloss.Style{
			filter.LevelInfo:  r.NewStyle().Foreground(ColorSuccess),
			filter.LevelWarn:  r.NewStyle().Foreground(ColorWarning),
			filter.LevelError: r.NewStyle().Bold(true).Foreground(ColorError),
		},
	}
}

// Notify implements filter.Notifier.
func (n *Notifier) Notify(level filter.Level, msg string) {
	if n.quiet && level == filter.LevelInfo {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	prefix := map[filter.Level]string{
		filter.LevelInfo:  "✓",
		filter.LevelWarn:  "!",
		filter.LevelError: "✗",
	}[level]
	head, rest, _ := strings.Cut(msg, "\n")
	_, _ = fmt.Fprintln(n.w, n.styles[level].Render(prefix+" "+head))
	if rest != "" {
		for line := range strings.SplitSeq(rest, "\n") {
			_, _ = fmt.Fprintln(n.w, "  "+line)
		}
	}
}
