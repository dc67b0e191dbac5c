// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/poshfilter/poshfilter/pkg/platform"
)

// Slot policies.
const (
	// SlotUnique allocates a fresh temporary directory per invocation.
	SlotUnique SlotPolicy = "unique"
	// SlotFixed reuses one well-known directory guarded by locks.
	SlotFixed SlotPolicy = "fixed"
)

// File names inside a slot directory.
const (
	ScriptFileName = "filter" + platform.ScriptExtension
	OutputFileName = "outputs.xml"
	OutputDirName  = "out"
	lockFileName   = "poshfilter.lock"
	fixedDirName   = "poshfilter"
)

type (
	// SlotPolicy selects how script and output paths are allocated.
	SlotPolicy string

	// Workspace allocates slots under a base directory.
	Workspace struct {
		policy SlotPolicy
		base   string
		logger *log.Logger

		// mu serializes fixed-slot invocations within this process.
		mu sync.Mutex
	}

	// Slot holds the paths one invocation reads and writes. It is released
	// exactly once, after the interpreter has exited and the output has been
	// collected.
	Slot struct {
		// Dir is the slot directory.
		Dir string
		// ScriptPath is the script document.
		ScriptPath string
		// OutputPath is the XML output document.
		OutputPath string
		// OutputDir receives out_<i>.txt files.
		OutputDir string

		release func() error
		once    sync.Once
	}
)

// ParseSlotPolicy parses a policy name case-insensitively.
func ParseSlotPolicy(s string) (SlotPolicy, error) {
	switch p := SlotPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case SlotUnique, SlotFixed:
		return p, nil
	case "":
		return SlotUnique, nil
	default:
		return "", fmt.Errorf("unknown slot policy %q (want unique or fixed)", s)
	}
}

// NewWorkspace creates a workspace. An empty base means os.TempDir().
func NewWorkspace(policy SlotPolicy, base string, logger *log.Logger) *Workspace {
	if policy == "" {
		policy = SlotUnique
	}
	if base == "" {
		base = os.TempDir()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Workspace{policy: policy, base: base, logger: logger}
}

// Allocate reserves a slot. Under SlotFixed it blocks until no other
// invocation, in this process or another, holds the slot.
func (w *Workspace) Allocate(ctx context.Context) (*Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w.policy == SlotFixed {
		return w.allocateFixed()
	}
	return w.allocateUnique()
}

func (w *Workspace) allocateUnique() (*Slot, error) {
	if err := os.MkdirAll(w.base, 0o755); err != nil {
		return nil, &UnwritableError{Op: "create workspace", Path: w.base, Err: err}
	}
	dir, err := os.MkdirTemp(w.base, "poshfilter-*")
	if err != nil {
		return nil, &UnwritableError{Op: "create workspace", Path: w.base, Err: err}
	}
	slot := newSlot(dir)
	if err := os.Mkdir(slot.OutputDir, 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return nil, &UnwritableError{Op: "create output directory", Path: slot.OutputDir, Err: err}
	}
	slot.release = func() error {
		return os.RemoveAll(dir)
	}
	w.logger.Debug("allocated slot", "policy", w.policy, "dir", dir)
	return slot, nil
}

func (w *Workspace) allocateFixed() (*Slot, error) {
	dir := filepath.Join(w.base, fixedDirName)
	w.mu.Lock()

	if err := os.MkdirAll(filepath.Join(dir, OutputDirName), 0o755); err != nil {
		w.mu.Unlock()
		return nil, &UnwritableError{Op: "create workspace", Path: dir, Err: err}
	}

	lock, err := acquireSlotLock(filepath.Join(dir, lockFileName))
	switch {
	case errors.Is(err, errLockUnavailable):
		w.logger.Debug("cross-process slot lock unavailable, using in-process mutex only")
	case err != nil:
		w.mu.Unlock()
		return nil, &UnwritableError{Op: "lock workspace", Path: dir, Err: err}
	}

	slot := newSlot(dir)
	if err := clearOutputs(slot); err != nil {
		_ = lock.Release()
		w.mu.Unlock()
		return nil, &UnwritableError{Op: "clear previous output", Path: dir, Err: err}
	}
	slot.release = func() error {
		defer w.mu.Unlock()
		return lock.Release()
	}
	w.logger.Debug("allocated slot", "policy", w.policy, "dir", dir)
	return slot, nil
}

func newSlot(dir string) *Slot {
	return &Slot{
		Dir:        dir,
		ScriptPath: filepath.Join(dir, ScriptFileName),
		OutputPath: filepath.Join(dir, OutputFileName),
		OutputDir:  filepath.Join(dir, OutputDirName),
	}
}

// clearOutputs removes artifacts left by a previous run in a fixed slot so a
// crashed interpreter cannot leave stale results behind for correlation.
func clearOutputs(slot *Slot) error {
	if err := os.Remove(slot.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(slot.OutputDir, "out_*.txt"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Release frees the slot. Calling it more than once is a no-op.
func (s *Slot) Release() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		if s.release != nil {
			err = s.release()
		}
	})
	return err
}
