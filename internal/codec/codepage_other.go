// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package codec

// systemOEMCodePage reports UTF-8: PowerShell on Unix writes every stream in
// UTF-8 and there is no console code page to query.
func systemOEMCodePage() (CodePage, error) {
	return CodePageUTF8, nil
}
