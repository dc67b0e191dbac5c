// SPDX-License-Identifier: MPL-2.0

package history

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/poshfilter/poshfilter/internal/fsutil"
)

// DefaultMaxEntries is the default history cap.
const DefaultMaxEntries = 50

// ErrPersist is the sentinel error wrapped by PersistError.
var ErrPersist = errors.New("could not save history")

type (
	// Store is an in-memory history bound to a file path. It is safe for
	// concurrent use.
	Store struct {
		mu      sync.Mutex
		path    string
		max     int
		entries []string
	}

	// PersistError is returned when the history file cannot be read or
	// written.
	PersistError struct {
		Path string
		Op   string
		Err  error
	}
)

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("%s history %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns both ErrPersist and the underlying I/O error.
func (e *PersistError) Unwrap() []error { return []error{ErrPersist, e.Err} }

// NewStore creates an empty store. A non-positive max selects
// DefaultMaxEntries.
func NewStore(path string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{path: path, max: maxEntries}
}

// Load creates a store and fills it from path. A missing file yields an
// empty store; the file is created by the first Save.
func Load(path string, maxEntries int) (*Store, error) {
	s := NewStore(path, maxEntries)
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, &PersistError{Path: path, Op: "read", Err: err}
	}

	scanner := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || slices.Contains(s.entries, line) {
			continue
		}
		s.entries = append(s.entries, line)
		if len(s.entries) == s.max {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return NewStore(path, maxEntries), &PersistError{Path: path, Op: "read", Err: err}
	}
	return s, nil
}

// Path returns the file the store persists to.
func (s *Store) Path() string { return s.path }

// Max returns the cap.
func (s *Store) Max() int { return s.max }

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the entries, most recent first.
func (s *Store) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Add inserts text at the front unless it is already present, then evicts
// the oldest entries beyond the cap. An existing entry keeps its position.
// Blank text and text containing line breaks are never stored because the
// line-oriented file format could not round-trip them. Add reports whether
// text was inserted.
func (s *Store) Add(text string) bool {
	if strings.TrimSpace(text) == "" || strings.ContainsAny(text, "\r\n") {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.entries, text) {
		return false
	}
	s.entries = slices.Insert(s.entries, 0, text)
	if len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
	return true
}

// Clear removes every entry. The file is untouched until the next Save.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Save writes every entry to the store's path, one per line, replacing the
// file atomically.
func (s *Store) Save() error {
	if s.path == "" {
		return &PersistError{Path: s.path, Op: "write", Err: errors.New("no history path configured")}
	}

	s.mu.Lock()
	var sb strings.Builder
	for _, e := range s.entries {
		sb.WriteString(e)
		sb.WriteByte('\n')
	}
	s.mu.Unlock()

	if err := fsutil.AtomicWrite(s.path, []byte(sb.String()), 0o600); err != nil {
		return &PersistError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}
