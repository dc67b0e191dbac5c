// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/script"
	"github.com/poshfilter/poshfilter/internal/testutil"
)

// fakeRunner returns a runner whose interpreter is this test binary acting
// as the fake interpreter.
func fakeRunner(t *testing.T, timeout time.Duration, env ...string) *Runner {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable() error: %v", err)
	}
	return NewRunner(Options{
		Interpreter: exe,
		Timeout:     timeout,
		Env:         testutil.FakeInterpreterEnviron(env...),
	})
}

func resolveCodecs(t *testing.T, stderrCodePage string) codec.Set {
	t.Helper()
	set, err := codec.NewResolver(codec.Options{StderrCodePage: stderrCodePage}).Resolve(t.Context())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return set
}

// prepare synthesizes a document for texts into a fresh slot.
func prepare(t *testing.T, texts []string, pipeline string) (*script.Slot, *script.Document, codec.Set) {
	t.Helper()
	set := resolveCodecs(t, "65001")
	ws := script.NewWorkspace(script.SlotUnique, t.TempDir(), nil)
	slot, err := ws.Allocate(t.Context())
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	t.Cleanup(func() { _ = slot.Release() })

	synth, err := script.NewSynthesizer(script.DefaultOptions())
	if err != nil {
		t.Fatalf("NewSynthesizer() error: %v", err)
	}
	doc, err := synth.Synthesize(slot, texts, pipeline, set)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	return slot, doc, set
}

func TestArgs(t *testing.T) {
	t.Parallel()

	got := Args(`C:\tmp\filter.ps1`, "aABpAA==")
	want := []string{
		"-noprofile", "-nologo", "-noninteractive",
		"-executionpolicy", "remotesigned",
		"-file", `C:\tmp\filter.ps1`, "aABpAA==",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestDisplayCommand(t *testing.T) {
	t.Parallel()

	got := DisplayCommand("pwsh", []string{"-file", "/tmp/my script.ps1"})
	want := `pwsh -file '/tmp/my script.ps1'`
	if got != want {
		t.Errorf("DisplayCommand() = %s, want %s", got, want)
	}
}

func TestRunner_Success(t *testing.T) {
	t.Parallel()

	slot, doc, set := prepare(t, []string{"hello"}, testutil.PipelineUpper)
	result, err := fakeRunner(t, DefaultTimeout).Run(t.Context(), slot.ScriptPath, doc.Args, set)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.Success() {
		t.Errorf("Run() exit code = %s, want 0", result.ExitCode)
	}
	if _, err := os.Stat(slot.OutputPath); err != nil {
		t.Errorf("interpreter did not write %s: %v", slot.OutputPath, err)
	}
}

func TestRunner_PipelineError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pipeline string
		wantCode ExitCode
		wantDiag string
	}{
		{"stderr and exit code", testutil.PipelineFail, 1, "syntax error"},
		{"stderr with clean exit", testutil.PipelineWarn, 0, "WARNING: careful"},
		{"unknown command", "Get-Nonsense", 1, "The term 'Get-Nonsense' is not recognized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slot, doc, set := prepare(t, []string{"a", "b", "c"}, tt.pipeline)
			_, err := fakeRunner(t, DefaultTimeout).Run(t.Context(), slot.ScriptPath, doc.Args, set)
			if !errors.Is(err, ErrPipeline) {
				t.Fatalf("Run() error = %v, want ErrPipeline", err)
			}
			var pe *PipelineError
			if !errors.As(err, &pe) {
				t.Fatalf("Run() error = %T, want *PipelineError", err)
			}
			if pe.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %s, want %s", pe.ExitCode, tt.wantCode)
			}
			if !strings.HasPrefix(pe.Diagnostic, tt.wantDiag) {
				t.Errorf("Diagnostic = %q, want prefix %q", pe.Diagnostic, tt.wantDiag)
			}
		})
	}
}

func TestRunner_StderrCodePage(t *testing.T) {
	t.Parallel()

	// The fake writes its diagnostic in code page 850; the runner must
	// decode it with the resolved stderr encoding.
	slot, doc, _ := prepare(t, []string{"x"}, "Get-Größe")
	set := resolveCodecs(t, "850")
	_, err := fakeRunner(t, DefaultTimeout, testutil.FakeStderrCodePageEnv+"=850").Run(t.Context(), slot.ScriptPath, doc.Args, set)

	var pe *PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("Run() error = %v, want *PipelineError", err)
	}
	if !strings.Contains(pe.Diagnostic, "'Get-Größe'") {
		t.Errorf("Diagnostic = %q, want decoded 'Get-Größe'", pe.Diagnostic)
	}
}

func TestRunner_Timeout(t *testing.T) {
	t.Parallel()

	slot, doc, set := prepare(t, []string{"x"}, testutil.PipelineSleep)
	start := time.Now()
	_, err := fakeRunner(t, 300*time.Millisecond).Run(t.Context(), slot.ScriptPath, doc.Args, set)

	var pe *PipelineError
	if !errors.As(err, &pe) || !pe.TimedOut {
		t.Fatalf("Run() error = %v, want timed out PipelineError", err)
	}
	if pe.Timeout != 300*time.Millisecond {
		t.Errorf("Timeout = %s, want 300ms", pe.Timeout)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Run() took %s, the process was not killed", elapsed)
	}
}

func TestRunner_Canceled(t *testing.T) {
	t.Parallel()

	slot, doc, set := prepare(t, []string{"x"}, testutil.PipelineSleep)
	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()

	_, err := fakeRunner(t, 0).Run(ctx, slot.ScriptPath, doc.Args, set)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if errors.Is(err, ErrPipeline) {
		t.Errorf("caller cancellation must not be reported as a pipeline error: %v", err)
	}
}

func TestRunner_EnvironmentError(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "no-such-pwsh")
	r := NewRunner(Options{Interpreter: missing})
	_, err := r.Run(t.Context(), filepath.Join(t.TempDir(), "filter.ps1"), nil, codec.Set{})
	if !errors.Is(err, ErrEnvironment) {
		t.Fatalf("Run() error = %v, want ErrEnvironment", err)
	}
	var ee *EnvironmentError
	if !errors.As(err, &ee) || ee.Interpreter != missing {
		t.Errorf("Run() error = %#v, want EnvironmentError for %s", err, missing)
	}

	notOnPath := NewRunner(Options{Interpreter: "poshfilter-no-such-interpreter"})
	_, err = notOnPath.Run(t.Context(), "filter.ps1", nil, codec.Set{})
	if !errors.As(err, &ee) || !ee.NotFound() {
		t.Errorf("Run() error = %v, want not-found EnvironmentError", err)
	}
	if _, err := notOnPath.LookPath(); !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("LookPath() error = %v, want exec.ErrNotFound", err)
	}
}

func TestNewRunner_Defaults(t *testing.T) {
	t.Parallel()

	r := NewRunner(Options{})
	if r.Interpreter() == "" {
		t.Error("NewRunner() left the interpreter empty")
	}
	if r.Timeout() != 0 {
		t.Errorf("Timeout() = %s, want 0", r.Timeout())
	}
}

func TestFilterEnv(t *testing.T) {
	t.Parallel()

	got := FilterEnv([]string{"PATH=/bin", "POSHFILTER_INTERPRETER=pwsh", "poshfilter_log_level=debug", "MALFORMED", "HOME=/root"})
	want := []string{"PATH=/bin", "MALFORMED", "HOME=/root"}
	if !slices.Equal(got, want) {
		t.Errorf("FilterEnv() = %q, want %q", got, want)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	if _, err := classify(0, "out", " \r\n"); err != nil {
		t.Errorf("classify() whitespace stderr error = %v, want nil", err)
	}
	if _, err := classify(3, "", ""); !errors.Is(err, ErrPipeline) {
		t.Errorf("classify() non-zero exit error = %v, want ErrPipeline", err)
	}
	_, err := classify(0, "", "boom\nat line 1")
	if err == nil || err.Error() != "pipeline failed: boom" {
		t.Errorf("classify() error = %v, want first diagnostic line", err)
	}
}
