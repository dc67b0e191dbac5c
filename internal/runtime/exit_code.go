// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents an interpreter exit status.
	// PowerShell reports statuses as 32-bit integers on Windows, so no
	// POSIX range is enforced beyond fitting in an int32.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode does not fit the
	// platform's status width.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the exit code does not fit in an int32.
// A negative value of -1 is reserved by os/exec for "unknown" and is
// rejected as well.
func (c ExitCode) Validate() error {
	if c == -1 || int64(c) < -1<<31 || int64(c) > 1<<31-1 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
