// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/pkg/platform"
)

const (
	// DefaultTimeout bounds a single interpreter run.
	DefaultTimeout = 2 * time.Minute

	// waitDelay bounds how long Wait keeps draining pipes after the process
	// was killed, in case a grandchild inherited them.
	waitDelay = 2 * time.Second
)

// fixedArgs precede the script path on every invocation.
var fixedArgs = []string{
	"-noprofile",
	"-nologo",
	"-noninteractive",
	"-executionpolicy", "remotesigned",
	"-file",
}

type (
	// Options configures a Runner.
	Options struct {
		// Interpreter is the PowerShell binary name or path. Empty selects
		// the platform default.
		Interpreter string
		// Timeout kills the interpreter after the given duration. Zero
		// disables the limit.
		Timeout time.Duration
		// Env is appended to the filtered host environment.
		Env []string
		// Logger receives debug output. Nil discards it.
		Logger *log.Logger
	}

	// Runner spawns the interpreter against script documents.
	Runner struct {
		interpreter string
		timeout     time.Duration
		env         []string
		logger      *log.Logger
	}
)

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	interpreter := opts.Interpreter
	if interpreter == "" {
		interpreter = platform.DefaultInterpreter(platform.CurrentOS())
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		interpreter: interpreter,
		timeout:     opts.Timeout,
		env:         opts.Env,
		logger:      logger,
	}
}

// Interpreter returns the configured interpreter.
func (r *Runner) Interpreter() string { return r.interpreter }

// Timeout returns the configured timeout; zero means none.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Args returns the argument vector, without the interpreter itself, used to
// run scriptPath with extra trailing arguments.
func Args(scriptPath string, extra ...string) []string {
	args := make([]string, 0, len(fixedArgs)+1+len(extra))
	args = append(args, fixedArgs...)
	args = append(args, scriptPath)
	return append(args, extra...)
}

// LookPath resolves the interpreter on the search path.
func (r *Runner) LookPath() (string, error) {
	path, err := exec.LookPath(r.interpreter)
	if err != nil {
		return "", &EnvironmentError{Interpreter: r.interpreter, Err: err}
	}
	return path, nil
}

// Run executes scriptPath and blocks until the interpreter exits. The
// streams are decoded with set and classified:
//   - spawn failures return *EnvironmentError
//   - stderr output, a non-zero exit or a timeout return *PipelineError
//
// If ctx is canceled the process is killed and ctx.Err() is returned.
func (r *Runner) Run(ctx context.Context, scriptPath string, extra []string, set codec.Set) (*Result, error) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := Args(scriptPath, extra...)
	cmd := exec.CommandContext(runCtx, r.interpreter, args...)
	cmd.Env = append(FilterEnv(os.Environ()), r.env...)
	cmd.WaitDelay = waitDelay
	hideWindow(cmd)

	var captured capturedOutput
	cmd.Stdout = &captured.stdout
	cmd.Stderr = &captured.stderr

	r.logger.Debug("running interpreter", "command", DisplayCommand(r.interpreter, args))
	start := time.Now()
	waitErr := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("interpreter interrupted: %w", ctxErr)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.Debug("interpreter timed out", "timeout", r.timeout)
		return nil, &PipelineError{ExitCode: 1, TimedOut: true, Timeout: r.timeout}
	}

	code, spawnErr := extractExitCode(waitErr)
	if spawnErr != nil {
		return nil, &EnvironmentError{Interpreter: r.interpreter, Err: spawnErr}
	}

	stdout, stderr, err := captured.decode(set)
	if err != nil {
		return nil, &EnvironmentError{Interpreter: r.interpreter, Err: err}
	}
	r.logger.Debug("interpreter exited",
		"exit_code", code,
		"duration", elapsed,
		"stdout_bytes", captured.stdout.Len(),
		"stderr_bytes", captured.stderr.Len())

	result, err := classify(code, stdout, stderr)
	if err != nil {
		return nil, err
	}
	result.Duration = elapsed
	return result, nil
}

// DisplayCommand renders argv as one copy-pasteable line. Arguments are
// quoted with POSIX shell rules; the command is never executed through a
// shell.
func DisplayCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{name}, args...) {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", a)
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}
