// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/config"
	"github.com/poshfilter/poshfilter/internal/correlate"
	"github.com/poshfilter/poshfilter/internal/history"
	"github.com/poshfilter/poshfilter/internal/issue"
	"github.com/poshfilter/poshfilter/internal/runtime"
	"github.com/poshfilter/poshfilter/internal/script"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitPipeline    = 1
	ExitEnvironment = 2
	ExitCorrelation = 3
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE
// handlers. Reported errors were already shown to the user by the
// notifier and are not printed again.
type ExitError struct {
	Code     int
	Err      error
	Reported bool
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps a failure to the process exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, runtime.ErrPipeline):
		return ExitPipeline
	case errors.Is(err, correlate.ErrCorrelation):
		return ExitCorrelation
	case errors.Is(err, runtime.ErrEnvironment),
		errors.Is(err, script.ErrScriptUnwritable),
		errors.Is(err, script.ErrArgumentTooLong),
		errors.Is(err, codec.ErrResolve),
		errors.Is(err, config.ErrInvalidConfig):
		return ExitEnvironment
	default:
		var ae *issue.ActionableError
		if errors.As(err, &ae) && ae.Issue == issue.ConfigLoadFailedId {
			return ExitEnvironment
		}
		return ExitPipeline
	}
}

// classifyError maps a failure to its issue catalog entry, or 0.
func classifyError(err error) issue.Id {
	var (
		ae          *issue.ActionableError
		pipelineErr *runtime.PipelineError
		envErr      *runtime.EnvironmentError
	)
	switch {
	case errors.As(err, &pipelineErr):
		if pipelineErr.TimedOut {
			return issue.PipelineTimedOutId
		}
		return issue.PipelineFailedId
	case errors.Is(err, codec.ErrResolve):
		return issue.CodePageUnresolvedId
	case errors.Is(err, script.ErrArgumentTooLong):
		return issue.ArgumentTooLongId
	case errors.As(err, &envErr):
		return issue.InterpreterNotFoundId
	case errors.Is(err, history.ErrPersist):
		return issue.HistorySaveFailedId
	case errors.Is(err, script.ErrScriptUnwritable), errors.Is(err, os.ErrPermission):
		return issue.ScriptUnwritableId
	case errors.Is(err, correlate.ErrCorrelation):
		return issue.CorrelationFailedId
	case errors.As(err, &ae):
		return ae.Issue
	}
	return 0
}

// newExitError wraps a filter failure that the notifier already reported.
func newExitError(err error) *ExitError {
	return &ExitError{Code: exitCodeFor(err), Err: err, Reported: true}
}
