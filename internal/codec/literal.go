// SPDX-License-Identifier: MPL-2.0

package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedLiteral is returned when parsing a quoted literal fails.
var ErrMalformedLiteral = errors.New("malformed literal")

// isSingleQuote reports whether r terminates a PowerShell single-quoted
// string. Besides the ASCII apostrophe, the tokenizer accepts the four
// typographic single quotes.
func isSingleQuote(r rune) bool {
	switch r {
	case '\'', '‘', '’', '‚', '‛':
		return true
	}
	return false
}

// QuoteLiteral renders text as a PowerShell single-quoted string. Every
// single-quote character is doubled; nothing else needs escaping, newlines
// included.
func QuoteLiteral(text string) string {
	var sb strings.Builder
	sb.Grow(len(text) + 2)
	sb.WriteByte('\'')
	for _, r := range text {
		if isSingleQuote(r) {
			sb.WriteRune(r)
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('\'')
	return sb.String()
}

// UnquoteLiteral parses one single-quoted literal at the start of s and
// returns its value and the unconsumed remainder.
func UnquoteLiteral(s string) (value, rest string, err error) {
	runes := []rune(s)
	if len(runes) == 0 || !isSingleQuote(runes[0]) {
		return "", s, fmt.Errorf("%w: missing opening quote", ErrMalformedLiteral)
	}
	var sb strings.Builder
	for i := 1; i < len(runes); i++ {
		r := runes[i]
		if !isSingleQuote(r) {
			sb.WriteRune(r)
			continue
		}
		if i+1 < len(runes) && isSingleQuote(runes[i+1]) {
			sb.WriteRune(r)
			i++
			continue
		}
		return sb.String(), string(runes[i+1:]), nil
	}
	return "", s, fmt.Errorf("%w: unterminated string", ErrMalformedLiteral)
}

// RenderArray renders texts as the elements of a PowerShell @(...) array
// literal, one element per line.
func RenderArray(texts []string) string {
	quoted := make([]string, len(texts))
	for i, t := range texts {
		quoted[i] = QuoteLiteral(t)
	}
	return strings.Join(quoted, ",\n")
}

// ParseArray reverses RenderArray.
func ParseArray(s string) ([]string, error) {
	var out []string
	rest := strings.TrimSpace(s)
	for rest != "" {
		value, tail, err := UnquoteLiteral(rest)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
		tail = strings.TrimSpace(tail)
		if tail == "" {
			break
		}
		if !strings.HasPrefix(tail, ",") {
			return nil, fmt.Errorf("%w: expected ',' before %q", ErrMalformedLiteral, truncate(tail, 16))
		}
		rest = strings.TrimSpace(tail[1:])
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
