// SPDX-License-Identifier: MPL-2.0

package codec

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// argumentEncoding is what .NET calls [Text.Encoding]::Unicode.
var argumentEncoding encoding.Encoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeArgument turns text into an ASCII-only process argument: the UTF-16LE
// bytes of text, base64 encoded. The script reverses it with
// [Text.Encoding]::Unicode.GetString([Convert]::FromBase64String($arg)).
func EncodeArgument(text string) (string, error) {
	raw, err := argumentEncoding.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return "", fmt.Errorf("encode argument as UTF-16LE: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeArgument reverses EncodeArgument.
func DecodeArgument(arg string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(arg)
	if err != nil {
		return "", fmt.Errorf("decode base64 argument: %w", err)
	}
	text, err := argumentEncoding.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode UTF-16LE argument: %w", err)
	}
	return string(text), nil
}
