// SPDX-License-Identifier: MPL-2.0

//go:build windows

package script

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

var errLockUnavailable = errors.New("file locking not available on this platform")

// slotLock holds an exclusive LockFileEx lock on the first byte of the
// fixed slot's lock file.
type slotLock struct {
	file *os.File
}

// acquireSlotLock opens (or creates) path and blocks until it holds an
// exclusive lock on it.
func acquireSlotLock(path string) (*slotLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	ol := new(windows.Overlapped)
	if err := windows.LockFileEx(windows.Handle(f.Fd()), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, ol); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &slotLock{file: f}, nil
}

// Release unlocks and closes the lock file. Subsequent calls are no-ops.
func (l *slotLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	ol := new(windows.Overlapped)
	unlockErr := windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, ol)
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(unlockErr, closeErr)
}
