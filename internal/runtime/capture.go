// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/poshfilter/poshfilter/internal/codec"
)

type (
	// capturedOutput holds the raw stdout and stderr of one interpreter run.
	// Both buffers are only read after the process has exited.
	capturedOutput struct {
		stdout bytes.Buffer
		stderr bytes.Buffer
	}

	// Result is the outcome of a successful interpreter run.
	Result struct {
		// ExitCode is always zero for a returned Result.
		ExitCode ExitCode
		// Output is the decoded stdout.
		Output string
		// ErrOutput is the decoded stderr. It only ever holds whitespace,
		// anything else is reported as a PipelineError.
		ErrOutput string
		// Duration is the wall time of the process.
		Duration time.Duration
	}
)

// Success returns true if the interpreter exited cleanly.
func (r *Result) Success() bool { return r.ExitCode.IsSuccess() }

// decode converts the captured bytes with the stream encodings of set.
func (c *capturedOutput) decode(set codec.Set) (stdout, stderr string, err error) {
	stdout, err = set.Decode(codec.Stdout, c.stdout.Bytes())
	if err != nil {
		return "", "", err
	}
	stderr, err = set.Decode(codec.Stderr, c.stderr.Bytes())
	if err != nil {
		return "", "", err
	}
	return stdout, stderr, nil
}

// extractExitCode splits a wait error into the process exit status and a
// spawn error. A non-nil spawn error means the process never ran to
// completion as a child (not found, permission denied, I/O fault).
func extractExitCode(err error) (ExitCode, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := ExitCode(exitErr.ExitCode())
		if code == -1 {
			// Killed by a signal; report a generic failure status.
			return 1, nil
		}
		if validateErr := code.Validate(); validateErr != nil {
			return 1, nil
		}
		return code, nil
	}
	return 1, err
}

// classify turns decoded streams and the exit status into a Result or a
// PipelineError. Whitespace-only stderr does not count as a diagnostic.
func classify(code ExitCode, stdout, stderr string) (*Result, error) {
	diagnostic := strings.TrimSpace(stderr)
	if diagnostic != "" || !code.IsSuccess() {
		return nil, &PipelineError{ExitCode: code, Diagnostic: diagnostic}
	}
	return &Result{ExitCode: code, Output: stdout, ErrOutput: stderr}, nil
}
