// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/config"
	"github.com/poshfilter/poshfilter/internal/correlate"
	"github.com/poshfilter/poshfilter/internal/history"
	"github.com/poshfilter/poshfilter/internal/issue"
	"github.com/poshfilter/poshfilter/internal/runtime"
	"github.com/poshfilter/poshfilter/internal/script"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantIssue issue.Id
	}{
		{"nil", nil, ExitOK, 0},
		{"pipeline failure", &runtime.PipelineError{ExitCode: 1, Diagnostic: "boom"}, ExitPipeline, issue.PipelineFailedId},
		{"timeout", &runtime.PipelineError{ExitCode: 1, TimedOut: true}, ExitPipeline, issue.PipelineTimedOutId},
		{"missing interpreter", &runtime.EnvironmentError{Interpreter: "pwsh", Err: os.ErrNotExist}, ExitEnvironment, issue.InterpreterNotFoundId},
		{
			"unresolved code page",
			&runtime.EnvironmentError{Interpreter: "pwsh", Err: &codec.ResolveError{Stream: codec.Stderr, Source: "command", Cause: errors.New("no chcp")}},
			ExitEnvironment, issue.CodePageUnresolvedId,
		},
		{
			"argument too long",
			&runtime.EnvironmentError{Interpreter: "pwsh", Err: fmt.Errorf("encode: %w", script.ErrArgumentTooLong)},
			ExitEnvironment, issue.ArgumentTooLongId,
		},
		{"unwritable script", fmt.Errorf("write: %w", script.ErrScriptUnwritable), ExitEnvironment, issue.ScriptUnwritableId},
		{"correlation", fmt.Errorf("collect: %w", correlate.ErrCorrelation), ExitCorrelation, issue.CorrelationFailedId},
		{"history", &history.PersistError{Path: "h", Op: "write", Err: os.ErrPermission}, ExitPipeline, issue.HistorySaveFailedId},
		{"permission denied", &os.PathError{Op: "open", Path: "/tmp/x", Err: os.ErrPermission}, ExitPipeline, issue.ScriptUnwritableId},
		{
			"config",
			issue.NewErrorContext().WithOperation("load configuration").WithIssue(issue.ConfigLoadFailedId).BuildError(),
			ExitEnvironment, issue.ConfigLoadFailedId,
		},
		{"other", errors.New("something else"), ExitPipeline, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := newExitError(tt.err)
			if tt.err != nil && wrapped.Code != tt.wantCode {
				t.Errorf("newExitError().Code = %d, want %d", wrapped.Code, tt.wantCode)
			}
			if got := exitCodeFor(tt.err); got != tt.wantCode {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.wantCode)
			}
			if got := classifyError(tt.err); got != tt.wantIssue {
				t.Errorf("classifyError() = %d, want %d", got, tt.wantIssue)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")
	err := &ExitError{Code: 3, Err: cause}
	if err.Error() != "cause" || !errors.Is(err, cause) {
		t.Errorf("ExitError = %v", err)
	}
	if got := (&ExitError{Code: 2}).Error(); got != "exit status 2" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSelectionFlags(t *testing.T) {
	t.Parallel()

	const text = "alpha\nbeta\ngamma\n"
	tests := []struct {
		name    string
		sel     selectionFlags
		want    []string
		wantErr bool
	}{
		{name: "whole document", want: []string{text}},
		{name: "one line", sel: selectionFlags{lines: []string{"2"}}, want: []string{"beta"}},
		{name: "line ranges", sel: selectionFlags{lines: []string{"1", "2-3"}}, want: []string{"alpha", "beta\ngamma"}},
		{name: "each line", sel: selectionFlags{eachLine: true}, want: []string{"alpha", "beta", "gamma"}},
		{name: "split", sel: selectionFlags{split: "\n"}, want: []string{"alpha", "beta", "gamma", ""}},
		{name: "match", sel: selectionFlags{match: `a\w`}, want: []string{"al", "am"}},
		{name: "no match", sel: selectionFlags{match: "zzz"}, want: nil},
		{name: "bad range", sel: selectionFlags{lines: []string{"3-1"}}, wantErr: true},
		{name: "range past end", sel: selectionFlags{lines: []string{"7"}}, wantErr: true},
		{name: "bad regexp", sel: selectionFlags{match: "("}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			surface, err := tt.sel.newSurface(text)
			if tt.wantErr {
				if err == nil {
					t.Fatal("newSurface() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newSurface() error: %v", err)
			}
			var got []string
			for _, f := range surface.Selections() {
				got = append(got, f.Text)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("selections = %q, want %q", got, tt.want)
			}
			if surface.String() != text {
				t.Errorf("String() = %q, want the document", surface.String())
			}
		})
	}
}

func TestIssueTitle(t *testing.T) {
	t.Parallel()

	if got := issueTitle(issue.Get(issue.InterpreterNotFoundId)); got != "PowerShell not found" {
		t.Errorf("issueTitle() = %q", got)
	}
	var buf bytes.Buffer
	if err := listIssues(&buf); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != len(issue.Values()) {
		t.Errorf("listIssues() wrote %d lines, want %d", n, len(issue.Values()))
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	ae := issue.NewErrorContext().
		WithOperation("load configuration").
		WithSuggestion("Check the file").
		Wrap(errors.New("bad syntax")).
		BuildError()
	got := formatErrorForDisplay(&ExitError{Code: 2, Err: ae}, false)
	if !strings.Contains(got, "failed to load configuration: bad syntax") || !strings.Contains(got, "• Check the file") {
		t.Errorf("formatErrorForDisplay() = %q", got)
	}
	if got := formatErrorForDisplay(errors.New("plain"), true); got != "plain" {
		t.Errorf("formatErrorForDisplay() = %q, want plain", got)
	}
}

// executeRoot runs the command tree in-process against buffers.
func executeRoot(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	app := NewApp(strings.NewReader(""), &out, &errOut)
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

//nolint:paralleltest // sets environment variables
func TestRoot_ConfigAndHistory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("POSHFILTER_HISTORY_PATH", filepath.Join(dir, "history.txt"))

	stdout, _, err := executeRoot(t, "config", "dump", "--format", "json")
	if err != nil {
		t.Fatalf("config dump: %v", err)
	}
	if !strings.Contains(stdout, `"max_entries": 50`) {
		t.Errorf("config dump = %q", stdout)
	}

	if _, _, err := executeRoot(t, "history", "add", "sort"); err != nil {
		t.Fatalf("history add: %v", err)
	}
	stdout, _, err = executeRoot(t, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if strings.TrimSpace(stdout) != "1  sort" {
		t.Errorf("history list = %q", stdout)
	}

	cfgPath := filepath.Join(dir, "custom.cue")
	if _, _, err = executeRoot(t, "--config", cfgPath, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, _, err := executeRoot(t, "--config", cfgPath, "config", "show"); err != nil {
		t.Fatalf("config show with the generated file: %v", err)
	}

	_, _, err = executeRoot(t, "--config", filepath.Join(dir, "missing.cue"), "config", "show")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitEnvironment {
		t.Errorf("missing config error = %v, want exit %d", err, ExitEnvironment)
	}
	if classifyError(err) != issue.ConfigLoadFailedId {
		t.Errorf("classifyError() = %d, want %d", classifyError(err), issue.ConfigLoadFailedId)
	}

	_, _, err = executeRoot(t, "--config", cfgPath, "config", "init")
	if !errors.Is(err, config.ErrConfigExists) {
		t.Errorf("second config init = %v, want %v", err, config.ErrConfigExists)
	}
}
