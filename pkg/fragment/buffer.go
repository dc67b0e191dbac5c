// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

type (
	// Buffer is an in-memory document with a fixed set of selected regions.
	// Replacing a region shifts every region that starts after it, the same
	// way an editor moves its selections after an edit.
	Buffer struct {
		mu      sync.Mutex
		text    string
		regions []region
	}

	region struct {
		id   int
		span Span
	}
)

// NewBuffer creates a buffer over text with the given selections, reported
// in the order supplied. With no spans, the whole document is selected.
// Spans must lie within the text and must not overlap or repeat.
func NewBuffer(text string, spans ...Span) (*Buffer, error) {
	if len(spans) == 0 {
		spans = []Span{{Start: 0, End: len(text)}}
	}

	regions := make([]region, len(spans))
	for i, sp := range spans {
		if sp.Start < 0 || sp.End < sp.Start || sp.End > len(text) {
			return nil, &InvalidSpanError{Span: sp, Reason: fmt.Sprintf("outside document of %d bytes", len(text))}
		}
		regions[i] = region{id: i, span: sp}
	}

	sorted := slices.Clone(regions)
	slices.SortFunc(sorted, func(a, b region) int {
		if c := cmp.Compare(a.span.Start, b.span.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.span.End, b.span.End)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].span == sorted[i].span {
			return nil, &InvalidSpanError{Span: sorted[i].span, Reason: "selected twice"}
		}
		if sorted[i-1].span.Overlaps(sorted[i].span) {
			return nil, &InvalidSpanError{Span: sorted[i].span, Reason: "overlaps span " + sorted[i-1].span.String()}
		}
	}

	return &Buffer{text: text, regions: regions}, nil
}

// Selections implements Surface.
func (b *Buffer) Selections() []Fragment {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Fragment, len(b.regions))
	for i, r := range b.regions {
		out[i] = Fragment{ID: r.id, Span: r.span, Text: b.text[r.span.Start:r.span.End]}
	}
	return out
}

// Replace implements Surface. The fragment's span must still describe the
// region it names; otherwise ErrStaleFragment is returned and nothing changes.
func (b *Buffer) Replace(f Fragment, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := slices.IndexFunc(b.regions, func(r region) bool { return r.id == f.ID })
	if idx < 0 {
		return fmt.Errorf("fragment %d: %w", f.ID, ErrStaleFragment)
	}
	old := b.regions[idx].span
	if old != f.Span {
		return fmt.Errorf("fragment %d at %s, surface has %s: %w", f.ID, f.Span, old, ErrStaleFragment)
	}

	b.text = b.text[:old.Start] + text + b.text[old.End:]
	delta := len(text) - old.Len()
	b.regions[idx].span = Span{Start: old.Start, End: old.Start + len(text)}
	for i := range b.regions {
		if i != idx && b.regions[i].span.Start >= old.End {
			b.regions[i].span.Start += delta
			b.regions[i].span.End += delta
		}
	}
	return nil
}

// String returns the current document text.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}
