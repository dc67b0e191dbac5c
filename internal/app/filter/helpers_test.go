// SPDX-License-Identifier: MPL-2.0

package filter

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/correlate"
	"github.com/poshfilter/poshfilter/internal/history"
	"github.com/poshfilter/poshfilter/internal/runtime"
	"github.com/poshfilter/poshfilter/internal/script"
	"github.com/poshfilter/poshfilter/internal/testutil"
	"github.com/poshfilter/poshfilter/pkg/fragment"
)

type (
	note struct {
		level Level
		msg   string
	}

	recordingNotifier struct {
		mu    sync.Mutex
		notes []note
	}

	// scriptedPrompter answers prompts from a queue and records the
	// initial values it was shown.
	scriptedPrompter struct {
		answers  []string
		err      error
		initials []string
	}

	scriptedSelector struct {
		choice string
		err    error
		shown  [][]string
	}

	countingScripts struct {
		inner ScriptWriter
		calls atomic.Int32
	}

	failingResolver struct{ err error }

	testEnv struct {
		filter   *Filter
		history  *history.Store
		notifier *recordingNotifier
		prompter *scriptedPrompter
		selector *scriptedSelector
		scripts  *countingScripts
		slotBase string
	}

	envOptions struct {
		script      script.Options
		slot        script.SlotPolicy
		interpreter string
		historyPath string
		resolver    CodecResolver
	}
)

func (n *recordingNotifier) Notify(level Level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{level: level, msg: msg})
}

// last returns the most recent notification.
func (n *recordingNotifier) last() note {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notes) == 0 {
		return note{}
	}
	return n.notes[len(n.notes)-1]
}

func (p *scriptedPrompter) Prompt(_ context.Context, _, initial string) (string, error) {
	p.initials = append(p.initials, initial)
	if p.err != nil {
		return "", p.err
	}
	if len(p.answers) == 0 {
		return "", ErrCanceled
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (s *scriptedSelector) Select(_ context.Context, _ string, items []string) (string, error) {
	s.shown = append(s.shown, items)
	if s.err != nil {
		return "", s.err
	}
	return s.choice, nil
}

func (c *countingScripts) Synthesize(slot *script.Slot, texts []string, pipeline string, set codec.Set) (*script.Document, error) {
	c.calls.Add(1)
	return c.inner.Synthesize(slot, texts, pipeline, set)
}

func (r failingResolver) Resolve(context.Context) (codec.Set, error) {
	return codec.Set{}, &codec.ResolveError{Stream: codec.Stderr, Source: codec.SourceCommand, Cause: r.err}
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	interpreter := opts.interpreter
	if interpreter == "" {
		exe, err := os.Executable()
		if err != nil {
			t.Fatalf("os.Executable() error: %v", err)
		}
		interpreter = exe
	}
	if opts.script == (script.Options{}) {
		opts.script = script.DefaultOptions()
	}
	resolver := opts.resolver
	if resolver == nil {
		resolver = codec.NewResolver(codec.Options{StderrCodePage: "65001"})
	}

	synth, err := script.NewSynthesizer(opts.script)
	if err != nil {
		t.Fatalf("NewSynthesizer() error: %v", err)
	}

	env := &testEnv{
		history:  history.NewStore(opts.historyPath, 5),
		notifier: &recordingNotifier{},
		prompter: &scriptedPrompter{},
		selector: &scriptedSelector{},
		scripts:  &countingScripts{inner: synth},
		slotBase: t.TempDir(),
	}
	env.filter, err = New(Dependencies{
		Resolver:  resolver,
		Workspace: script.NewWorkspace(opts.slot, env.slotBase, nil),
		Scripts:   env.scripts,
		Runner: runtime.NewRunner(runtime.Options{
			Interpreter: interpreter,
			Timeout:     runtime.DefaultTimeout,
			Env:         testutil.FakeInterpreterEnviron(),
		}),
		Correlator: correlate.New(correlate.Options{NormalizeNewlines: true}),
		History:    env.history,
		Prompter:   env.prompter,
		Selector:   env.selector,
		Notifier:   env.notifier,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return env
}

// wordBuffer selects every space-separated word of text.
func wordBuffer(t *testing.T, text string) *fragment.Buffer {
	t.Helper()
	b, err := fragment.NewBuffer(text, fragment.Split(text, " ")...)
	if err != nil {
		t.Fatalf("NewBuffer() error: %v", err)
	}
	return b
}

func texts(s fragment.Surface) []string {
	return fragment.Take(s).Texts()
}

func containsNote(n *recordingNotifier, level Level, substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, nt := range n.notes {
		if nt.level == level && strings.Contains(nt.msg, substr) {
			return true
		}
	}
	return false
}
