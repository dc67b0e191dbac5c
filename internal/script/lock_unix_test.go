// SPDX-License-Identifier: MPL-2.0

//go:build linux || darwin

package script

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireSlotLock_CreatesFile(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), lockFileName)
	lock, err := acquireSlotLock(lockPath)
	if err != nil {
		t.Fatalf("acquireSlotLock() error: %v", err)
	}
	defer func() { _ = lock.Release() }()

	if _, statErr := os.Stat(lockPath); statErr != nil {
		t.Errorf("lock file not found at %s: %v", lockPath, statErr)
	}
}

func TestSlotLock_ReleaseIdempotent(t *testing.T) {
	t.Parallel()

	lock, err := acquireSlotLock(filepath.Join(t.TempDir(), lockFileName))
	if err != nil {
		t.Fatalf("acquireSlotLock() error: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Release() error: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}

	var nilLock *slotLock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil Release() error: %v", err)
	}
}

// Goroutines incrementing a counter file under the lock must not lose
// updates.
func TestAcquireSlotLock_SerializedAccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lockPath := filepath.Join(dir, lockFileName)
	counterPath := filepath.Join(dir, "counter")
	if err := os.WriteFile(counterPath, []byte("0"), 0o600); err != nil {
		t.Fatalf("write initial counter: %v", err)
	}

	const workers = 5
	done := make(chan struct{}, workers)
	for range workers {
		go func() {
			defer func() { done <- struct{}{} }()

			lock, err := acquireSlotLock(lockPath)
			if err != nil {
				t.Errorf("acquireSlotLock() error: %v", err)
				return
			}
			defer func() { _ = lock.Release() }()

			data, err := os.ReadFile(counterPath)
			if err != nil {
				t.Errorf("read counter: %v", err)
				return
			}
			var n int
			if _, err := fmt.Sscanf(string(data), "%d", &n); err != nil {
				t.Errorf("parse counter %q: %v", data, err)
				return
			}
			if err := os.WriteFile(counterPath, fmt.Appendf(nil, "%d", n+1), 0o600); err != nil {
				t.Errorf("write counter: %v", err)
			}
		}()
	}

	for range workers {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for workers")
		}
	}

	data, err := os.ReadFile(counterPath)
	if err != nil {
		t.Fatalf("read final counter: %v", err)
	}
	if string(data) != fmt.Sprint(workers) {
		t.Errorf("counter = %s, want %d", data, workers)
	}
}
