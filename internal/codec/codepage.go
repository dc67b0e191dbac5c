// SPDX-License-Identifier: MPL-2.0

package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Well-known code pages.
const (
	CodePageUTF8    CodePage = 65001
	CodePageUTF16LE CodePage = 1200
	CodePageOEMUS   CodePage = 437
)

// ErrUnsupportedCodePage is the sentinel error wrapped by UnsupportedCodePageError.
var ErrUnsupportedCodePage = errors.New("unsupported code page")

type (
	// CodePage is a Windows code page identifier.
	CodePage int

	// UnsupportedCodePageError is returned for code pages without a known decoder.
	UnsupportedCodePageError struct {
		Value CodePage
	}
)

var codePages = map[CodePage]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	855:   charmap.CodePage855,
	858:   charmap.CodePage858,
	860:   charmap.CodePage860,
	862:   charmap.CodePage862,
	863:   charmap.CodePage863,
	865:   charmap.CodePage865,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	932:   japanese.ShiftJIS,
	936:   simplifiedchinese.GBK,
	949:   korean.EUCKR,
	950:   traditionalchinese.Big5,
	1200:  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	1201:  unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	20866: charmap.KOI8R,
	21866: charmap.KOI8U,
	28591: charmap.ISO8859_1,
	54936: simplifiedchinese.GB18030,
	65001: unicode.UTF8BOM,
}

// Error implements the error interface.
func (e *UnsupportedCodePageError) Error() string {
	return fmt.Sprintf("unsupported code page %s", e.Value)
}

// Unwrap returns ErrUnsupportedCodePage for errors.Is() compatibility.
func (e *UnsupportedCodePageError) Unwrap() error { return ErrUnsupportedCodePage }

// String returns the Python-style codec name, e.g. "cp850".
func (c CodePage) String() string { return "cp" + strconv.Itoa(int(c)) }

// Encoding returns the decoder/encoder for the code page.
func (c CodePage) Encoding() (encoding.Encoding, error) {
	enc, ok := codePages[c]
	if !ok {
		return nil, &UnsupportedCodePageError{Value: c}
	}
	return enc, nil
}

// ParseCodePage accepts "850", "cp850" or "CP850".
func ParseCodePage(s string) (CodePage, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.ToLower(s), "cp")
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid code page %q", s)
	}
	return CodePage(n), nil
}

// ParseChcpOutput extracts the active code page from the output of the
// chcp command. The message is localized ("Active code page: 850",
// "Aktive Codepage: 850."), so only the last token is trusted.
func ParseChcpOutput(out string) (CodePage, error) {
	fields := strings.Fields(strings.TrimRight(out, "\r\n"))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty code page report")
	}
	last := strings.TrimRight(fields[len(fields)-1], ".")
	return ParseCodePage(last)
}
