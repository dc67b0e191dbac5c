// SPDX-License-Identifier: MPL-2.0

package script

import (
	"errors"
	"fmt"
)

// MaxArgumentLength bounds the combined length of the extra arguments of the
// base64 transport. Windows caps a command line at 32767 UTF-16 units; the
// headroom covers the interpreter path, fixed flags and script path.
const MaxArgumentLength = 32767 - 2048

var (
	// ErrScriptUnwritable is the sentinel error wrapped by UnwritableError.
	ErrScriptUnwritable = errors.New("script location is not writable")

	// ErrArgumentTooLong is returned when base64 fragment arguments would
	// exceed MaxArgumentLength.
	ErrArgumentTooLong = errors.New("fragment arguments exceed the command line limit")
)

type (
	// UnwritableError is returned when the workspace, script document or
	// output location cannot be created or written. It is always raised
	// before the interpreter is spawned.
	UnwritableError struct {
		Op   string
		Path string
		Err  error
	}

	// ArgumentTooLongError reports the computed argument length.
	ArgumentTooLongError struct {
		Length int
		Limit  int
	}
)

// Error implements the error interface.
func (e *UnwritableError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns both ErrScriptUnwritable and the underlying I/O error.
func (e *UnwritableError) Unwrap() []error { return []error{ErrScriptUnwritable, e.Err} }

// Error implements the error interface.
func (e *ArgumentTooLongError) Error() string {
	return fmt.Sprintf("fragment arguments are %d characters long, limit is %d; use the literal transport", e.Length, e.Limit)
}

// Unwrap returns ErrArgumentTooLong for errors.Is() compatibility.
func (e *ArgumentTooLongError) Unwrap() error { return ErrArgumentTooLong }
