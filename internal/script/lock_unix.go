// SPDX-License-Identifier: MPL-2.0

//go:build linux || darwin

package script

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// errLockUnavailable is never returned on this platform; see lock_other.go.
var errLockUnavailable = errors.New("file locking not available on this platform")

// slotLock holds a blocking exclusive flock on the fixed slot's lock file.
// The kernel releases the lock when the descriptor is closed, including on
// process crash, so an orphaned zero-byte lock file is harmless.
type slotLock struct {
	file *os.File
}

// acquireSlotLock opens (or creates) path and blocks until it holds an
// exclusive flock on it.
func acquireSlotLock(path string) (*slotLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &slotLock{file: f}, nil
}

// Release unlocks and closes the lock file. Subsequent calls are no-ops.
func (l *slotLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(unlockErr, closeErr)
}
