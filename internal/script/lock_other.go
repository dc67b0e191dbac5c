// SPDX-License-Identifier: MPL-2.0

//go:build !linux && !darwin && !windows

package script

import "errors"

// errLockUnavailable makes the fixed policy fall back to the in-process
// mutex alone.
var errLockUnavailable = errors.New("file locking not available on this platform")

type slotLock struct{}

func acquireSlotLock(string) (*slotLock, error) {
	return nil, errLockUnavailable
}

// Release is a no-op.
func (l *slotLock) Release() error { return nil }
