// SPDX-License-Identifier: MPL-2.0

package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/correlate"
	"github.com/poshfilter/poshfilter/internal/history"
	"github.com/poshfilter/poshfilter/internal/issue"
	"github.com/poshfilter/poshfilter/internal/runtime"
	"github.com/poshfilter/poshfilter/internal/script"
	"github.com/poshfilter/poshfilter/pkg/fragment"
)

// PromptLabel is the label of the pipeline prompt.
const PromptLabel = "PowerShell pipeline"

// Outcome actions.
const (
	// ActionCanceled means nothing happened: the prompt was dismissed or the
	// pipeline was blank.
	ActionCanceled Action = iota
	// ActionApplied means the results replaced the fragments.
	ActionApplied
	// ActionHistoryEmpty means !h was submitted with an empty history.
	ActionHistoryEmpty
	// ActionHistorySaved means !mkh was submitted. Outcome.Warning holds
	// the save error, if any.
	ActionHistorySaved
)

type (
	// Action is what a cycle ended up doing.
	Action int

	// Outcome describes a completed cycle.
	Outcome struct {
		Action Action
		// Pipeline is the pipeline text that was run.
		Pipeline string
		// Results are the outputs, in snapshot order.
		Results []string
		// Warning is a non-fatal error that was notified, not returned.
		Warning error
	}

	// Dependencies are the collaborators of a Filter. Prompter and Selector
	// are only needed for Invoke and !h.
	Dependencies struct {
		Resolver   CodecResolver
		Workspace  SlotAllocator
		Scripts    ScriptWriter
		Runner     ProcessRunner
		Correlator ResultCollector
		History    *history.Store
		Prompter   Prompter
		Selector   Selector
		Notifier   Notifier
		Logger     *log.Logger
	}

	// Filter owns the retry state across cycles. Cycles on one Filter are
	// serialized.
	Filter struct {
		deps Dependencies

		mu         sync.Mutex
		lastFailed string
	}

	discardNotifier struct{}
)

func (discardNotifier) Notify(Level, string) {}

// New creates a Filter.
func New(deps Dependencies) (*Filter, error) {
	var missing []string
	if deps.Resolver == nil {
		missing = append(missing, "Resolver")
	}
	if deps.Workspace == nil {
		missing = append(missing, "Workspace")
	}
	if deps.Scripts == nil {
		missing = append(missing, "Scripts")
	}
	if deps.Runner == nil {
		missing = append(missing, "Runner")
	}
	if deps.Correlator == nil {
		missing = append(missing, "Correlator")
	}
	if deps.History == nil {
		missing = append(missing, "History")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("filter: missing dependencies: %s", strings.Join(missing, ", "))
	}
	if deps.Notifier == nil {
		deps.Notifier = discardNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	return &Filter{deps: deps}, nil
}

// LastFailedCommand returns the pipeline text of the most recent run that
// failed with a pipeline error, or "" after a successful run.
func (f *Filter) LastFailedCommand() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFailed
}

// History returns the filter's history store.
func (f *Filter) History() *history.Store { return f.deps.History }

// Invoke runs one prompt-driven cycle against surface. The prompt is
// pre-filled with initial, or with LastFailedCommand when initial is empty.
func (f *Filter) Invoke(ctx context.Context, surface fragment.Surface, initial string) (*Outcome, error) {
	if f.deps.Prompter == nil {
		return nil, errors.New("filter: no prompter configured")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := fragment.Take(surface)
	if initial == "" {
		initial = f.lastFailed
	}
	text, err := f.deps.Prompter.Prompt(ctx, PromptLabel, initial)
	if errors.Is(err, ErrCanceled) {
		return &Outcome{Action: ActionCanceled}, nil
	}
	if err != nil {
		return nil, err
	}
	return f.dispatch(ctx, surface, snap, text)
}

// Submit runs one cycle with text as if it had been typed at the prompt.
func (f *Filter) Submit(ctx context.Context, surface fragment.Surface, text string) (*Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dispatch(ctx, surface, fragment.Take(surface), text)
}

func (f *Filter) dispatch(ctx context.Context, surface fragment.Surface, snap fragment.Snapshot, text string) (*Outcome, error) {
	switch cmd := history.Parse(text).(type) {
	case history.ShowHistory:
		return f.showHistory(ctx, surface, snap)
	case history.PersistHistory:
		return f.persistHistory(), nil
	case history.RunPipeline:
		return f.runPipeline(ctx, surface, snap, cmd.Text)
	default:
		return nil, fmt.Errorf("filter: unhandled command %T", cmd)
	}
}

// showHistory lets the user pick an entry and re-prompts with it so it can
// be edited before running.
func (f *Filter) showHistory(ctx context.Context, surface fragment.Surface, snap fragment.Snapshot) (*Outcome, error) {
	entries := f.deps.History.Entries()
	if len(entries) == 0 {
		f.deps.Notifier.Notify(LevelInfo, "history is empty")
		return &Outcome{Action: ActionHistoryEmpty}, nil
	}
	if f.deps.Selector == nil || f.deps.Prompter == nil {
		return nil, errors.New("filter: showing history needs a selector and a prompter")
	}

	choice, err := f.deps.Selector.Select(ctx, "History", entries)
	if errors.Is(err, ErrCanceled) {
		return &Outcome{Action: ActionCanceled}, nil
	}
	if err != nil {
		return nil, err
	}
	text, err := f.deps.Prompter.Prompt(ctx, PromptLabel, choice)
	if errors.Is(err, ErrCanceled) {
		return &Outcome{Action: ActionCanceled}, nil
	}
	if err != nil {
		return nil, err
	}
	return f.dispatch(ctx, surface, snap, text)
}

func (f *Filter) persistHistory() *Outcome {
	store := f.deps.History
	if err := store.Save(); err != nil {
		f.deps.Logger.Warn("history not saved", "path", store.Path(), "err", err)
		f.deps.Notifier.Notify(LevelError, "could not save history: "+err.Error())
		return &Outcome{Action: ActionHistorySaved, Warning: err}
	}
	f.deps.Notifier.Notify(LevelInfo, fmt.Sprintf("saved %d history entries to %s", store.Len(), store.Path()))
	return &Outcome{Action: ActionHistorySaved}
}

func (f *Filter) runPipeline(ctx context.Context, surface fragment.Surface, snap fragment.Snapshot, pipeline string) (*Outcome, error) {
	if strings.TrimSpace(pipeline) == "" {
		return &Outcome{Action: ActionCanceled}, nil
	}
	if snap.Len() == 0 {
		f.deps.Notifier.Notify(LevelWarn, "nothing selected")
		return &Outcome{Action: ActionCanceled}, nil
	}

	results, err := f.execute(ctx, snap, pipeline)
	if err != nil {
		f.fail(pipeline, err)
		return nil, err
	}

	for _, i := range snap.ApplyOrder() {
		if err := surface.Replace(snap.At(i), results[i]); err != nil {
			err = fmt.Errorf("replace fragment %d: %w", i, err)
			f.deps.Notifier.Notify(LevelError, err.Error())
			return nil, err
		}
	}

	f.lastFailed = ""
	f.deps.History.Add(pipeline)
	f.deps.Logger.Debug("pipeline applied", "fragments", snap.Len())
	f.deps.Notifier.Notify(LevelInfo, fmt.Sprintf("filtered %d %s", snap.Len(), plural(snap.Len(), "fragment")))
	return &Outcome{Action: ActionApplied, Pipeline: pipeline, Results: results}, nil
}

// execute runs the pipeline over the snapshot and returns one result per
// fragment without touching the surface.
func (f *Filter) execute(ctx context.Context, snap fragment.Snapshot, pipeline string) ([]string, error) {
	interpreter := f.deps.Runner.Interpreter()

	set, err := f.deps.Resolver.Resolve(ctx)
	if err != nil {
		return nil, &runtime.EnvironmentError{Interpreter: interpreter, Err: err}
	}

	slot, err := f.deps.Workspace.Allocate(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := slot.Release(); releaseErr != nil {
			f.deps.Logger.Warn("slot not released", "dir", slot.Dir, "err", releaseErr)
		}
	}()

	doc, err := f.deps.Scripts.Synthesize(slot, snap.Texts(), pipeline, set)
	if errors.Is(err, script.ErrArgumentTooLong) {
		return nil, &runtime.EnvironmentError{Interpreter: interpreter, Err: err}
	}
	if err != nil {
		return nil, err
	}
	f.deps.Logger.Debug("script written", "path", slot.ScriptPath, "fragments", doc.Count, "stderr_code_page", set.StderrCodePage)

	if _, err := f.deps.Runner.Run(ctx, slot.ScriptPath, doc.Args, set); err != nil {
		return nil, err
	}
	return f.deps.Correlator.Collect(slot, doc)
}

// fail notifies err and remembers pipeline when the pipeline itself is at
// fault.
func (f *Filter) fail(pipeline string, err error) {
	var (
		pipelineErr *runtime.PipelineError
		envErr      *runtime.EnvironmentError
	)
	if errors.As(err, &pipelineErr) {
		f.lastFailed = pipeline
		msg := pipelineErr.Error()
		if pipelineErr.Diagnostic != "" {
			msg = "pipeline failed:\n" + pipelineErr.Diagnostic
		}
		f.deps.Notifier.Notify(LevelError, msg)
		f.deps.Logger.Debug("pipeline run failed", "err", err)
		return
	}

	ec := issue.NewErrorContext().Wrap(err)
	switch {
	case errors.Is(err, codec.ErrResolve):
		ec.WithOperation("resolve the console code page").
			WithIssue(issue.CodePageUnresolvedId).
			WithSuggestion("set codec.stderr_code_page to an explicit code page")
	case errors.Is(err, script.ErrArgumentTooLong):
		ec.WithOperation("pass the selection").
			WithIssue(issue.ArgumentTooLongId).
			WithSuggestion("use the literal transport for large selections")
	case errors.As(err, &envErr):
		ec.WithOperation("start the interpreter").
			WithIssue(issue.InterpreterNotFoundId).
			WithSuggestion("check that " + envErr.Interpreter + " is installed and on your PATH")
	case errors.Is(err, script.ErrScriptUnwritable):
		ec.WithOperation("write the filter script").
			WithIssue(issue.ScriptUnwritableId).
			WithSuggestion("check the permissions of the script directory")
	case errors.Is(err, correlate.ErrCorrelation):
		ec.WithOperation("read the interpreter output").
			WithIssue(issue.CorrelationFailedId).
			WithSuggestion("run 'poshfilter explain " + strconv.Itoa(int(issue.CorrelationFailedId)) + "' for details")
	default:
		ec.WithOperation("filter the selection")
	}
	f.deps.Notifier.Notify(LevelError, ec.Build().Format(false))
	f.deps.Logger.Debug("pipeline run failed", "err", err)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
