// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidLineRange is the sentinel error wrapped by line range parse failures.
var ErrInvalidLineRange = errors.New("invalid line range")

// LineRange is an inclusive, 1-based range of lines.
type LineRange struct {
	From int
	To   int
}

// ParseLineRange parses "N" or "N-M" into a LineRange.
func ParseLineRange(s string) (LineRange, error) {
	from, to, found := strings.Cut(strings.TrimSpace(s), "-")
	start, err := strconv.Atoi(from)
	if err != nil || start < 1 {
		return LineRange{}, fmt.Errorf("%w: %q", ErrInvalidLineRange, s)
	}
	end := start
	if found {
		end, err = strconv.Atoi(to)
		if err != nil || end < start {
			return LineRange{}, fmt.Errorf("%w: %q", ErrInvalidLineRange, s)
		}
	}
	return LineRange{From: start, To: end}, nil
}

// lineSpans returns the span of every line in text, excluding the line
// terminator. A trailing terminator does not start an extra empty line.
func lineSpans(text string) []Span {
	var spans []Span
	start := 0
	for start < len(text) {
		nl := strings.IndexByte(text[start:], '\n')
		if nl < 0 {
			spans = append(spans, Span{Start: start, End: len(text)})
			break
		}
		end := start + nl
		content := end
		if content > start && text[content-1] == '\r' {
			content--
		}
		spans = append(spans, Span{Start: start, End: content})
		start = end + 1
	}
	return spans
}

// EachLine selects every line of text as its own fragment.
func EachLine(text string) []Span {
	return lineSpans(text)
}

// Lines selects one fragment per range, spanning from the first character of
// From to the end of To (line terminator of the last line excluded).
func Lines(text string, ranges []LineRange) ([]Span, error) {
	lines := lineSpans(text)
	spans := make([]Span, 0, len(ranges))
	for _, r := range ranges {
		if r.From < 1 || r.To < r.From || r.To > len(lines) {
			return nil, fmt.Errorf("%w: %d-%d (document has %d lines)", ErrInvalidLineRange, r.From, r.To, len(lines))
		}
		spans = append(spans, Span{Start: lines[r.From-1].Start, End: lines[r.To-1].End})
	}
	return spans, nil
}

// Split selects the segments between occurrences of sep.
func Split(text, sep string) []Span {
	if sep == "" {
		return []Span{{Start: 0, End: len(text)}}
	}
	var spans []Span
	start := 0
	for {
		idx := strings.Index(text[start:], sep)
		if idx < 0 {
			spans = append(spans, Span{Start: start, End: len(text)})
			return spans
		}
		spans = append(spans, Span{Start: start, End: start + idx})
		start += idx + len(sep)
	}
}

// Matches selects every non-empty match of re.
func Matches(text string, re *regexp.Regexp) []Span {
	var spans []Span
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[1] > loc[0] {
			spans = append(spans, Span{Start: loc[0], End: loc[1]})
		}
	}
	return spans
}
