// SPDX-License-Identifier: MPL-2.0

//go:build windows

package codec

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var procGetOEMCP = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetOEMCP")

// systemOEMCodePage asks kernel32 for the OEM code page console programs
// write their diagnostics in.
func systemOEMCodePage() (CodePage, error) {
	if err := procGetOEMCP.Find(); err != nil {
		return 0, fmt.Errorf("locate GetOEMCP: %w", err)
	}
	cp, _, _ := procGetOEMCP.Call()
	if cp == 0 {
		return 0, fmt.Errorf("GetOEMCP returned 0")
	}
	return CodePage(cp), nil
}
