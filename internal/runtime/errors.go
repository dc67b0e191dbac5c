// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrEnvironment is the sentinel error wrapped by EnvironmentError.
	ErrEnvironment = errors.New("interpreter could not be run")

	// ErrPipeline is the sentinel error wrapped by PipelineError.
	ErrPipeline = errors.New("pipeline failed")
)

type (
	// EnvironmentError is returned when the interpreter process could not be
	// spawned at all: the binary is missing, not executable or the platform
	// refused to start it. The user's pipeline is not at fault.
	EnvironmentError struct {
		Interpreter string
		Err         error
	}

	// PipelineError is returned when the interpreter ran but reported a
	// failure. The user's pipeline text is at fault.
	PipelineError struct {
		// ExitCode is the interpreter's exit status.
		ExitCode ExitCode
		// Diagnostic is the decoded stderr, trimmed.
		Diagnostic string
		// TimedOut is set when the process was killed after exceeding the
		// runner timeout.
		TimedOut bool
		// Timeout is the limit that was exceeded.
		Timeout time.Duration
	}
)

// Error implements the error interface.
func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("cannot run %s: %v", e.Interpreter, e.Err)
}

// Unwrap returns both ErrEnvironment and the underlying cause.
func (e *EnvironmentError) Unwrap() []error { return []error{ErrEnvironment, e.Err} }

// NotFound reports whether the interpreter binary could not be located.
func (e *EnvironmentError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound)
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("pipeline timed out after %s", e.Timeout)
	case e.Diagnostic != "":
		return "pipeline failed: " + firstLine(e.Diagnostic)
	default:
		return fmt.Sprintf("pipeline failed with exit code %s", e.ExitCode)
	}
}

// Unwrap returns ErrPipeline for errors.Is() compatibility.
func (e *PipelineError) Unwrap() error { return ErrPipeline }

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
