// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrStaleFragment is returned when a replacement targets a fragment whose
	// span no longer matches the surface.
	ErrStaleFragment = errors.New("stale fragment")
	// ErrInvalidSpan is the sentinel error wrapped by InvalidSpanError.
	ErrInvalidSpan = errors.New("invalid span")
)

type (
	// Span is a half-open byte range [Start, End) into a document.
	Span struct {
		Start int
		End   int
	}

	// Fragment is one independently addressable unit of text.
	Fragment struct {
		// ID identifies the fragment on its surface. It is opaque to the core.
		ID int
		// Span locates the fragment at the time it was reported.
		Span Span
		// Text is the literal content of the fragment.
		Text string
	}

	// Surface is the editing surface fragments come from.
	Surface interface {
		// Selections returns the current fragments in report order.
		Selections() []Fragment
		// Replace overwrites the content of f with text.
		Replace(f Fragment, text string) error
	}

	// Snapshot is an immutable, ordered copy of a surface's fragments.
	Snapshot struct {
		fragments []Fragment
	}

	// InvalidSpanError is returned for spans that are reversed, out of
	// bounds or overlapping another span.
	InvalidSpanError struct {
		Span   Span
		Reason string
	}
)

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// String renders the span as start:end.
func (s Span) String() string { return fmt.Sprintf("%d:%d", s.Start, s.End) }

// Error implements the error interface.
func (e *InvalidSpanError) Error() string {
	return fmt.Sprintf("invalid span %s: %s", e.Span, e.Reason)
}

// Unwrap returns ErrInvalidSpan for errors.Is() compatibility.
func (e *InvalidSpanError) Unwrap() error { return ErrInvalidSpan }

// Take captures the current selections of s.
func Take(s Surface) Snapshot {
	return NewSnapshot(s.Selections())
}

// NewSnapshot builds a snapshot from an explicit fragment list.
func NewSnapshot(fragments []Fragment) Snapshot {
	return Snapshot{fragments: slices.Clone(fragments)}
}

// Len returns the number of fragments.
func (s Snapshot) Len() int { return len(s.fragments) }

// At returns the fragment at index i.
func (s Snapshot) At(i int) Fragment { return s.fragments[i] }

// Texts returns the fragment contents in snapshot order.
func (s Snapshot) Texts() []string {
	texts := make([]string, len(s.fragments))
	for i, f := range s.fragments {
		texts[i] = f.Text
	}
	return texts
}

// ApplyOrder returns snapshot indices ordered so that replacing fragments in
// that order never shifts a fragment that has not been replaced yet: the
// fragment that starts last in the document comes first. Of two fragments
// starting at the same offset, the one ending last comes first, so an empty
// selection is filled in after the region it precedes.
func (s Snapshot) ApplyOrder() []int {
	order := make([]int, len(s.fragments))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		fa, fb := s.fragments[a].Span, s.fragments[b].Span
		if c := cmp.Compare(fb.Start, fa.Start); c != 0 {
			return c
		}
		return cmp.Compare(fb.End, fa.End)
	})
	return order
}
