// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Interpreter base names recognized as PowerShell hosts.
const (
	WindowsPowerShell = "powershell"
	PowerShellCore    = "pwsh"
)

// ScriptExtension is the file extension PowerShell requires for -File scripts.
const ScriptExtension = ".ps1"

// CurrentOS returns runtime.GOOS.
func CurrentOS() string { return runtime.GOOS }

// IsWindows reports whether the current host is Windows.
func IsWindows() bool {
	return runtime.GOOS == Windows
}

// DefaultInterpreter returns the interpreter used when none is configured.
// Windows ships Windows PowerShell; other hosts only have PowerShell 7+.
func DefaultInterpreter(goos string) string {
	if goos == Windows {
		return WindowsPowerShell
	}
	return PowerShellCore
}

// IsPowerShell reports whether interpreter names a known PowerShell host.
// Directory components and a trailing ".exe" are ignored.
func IsPowerShell(interpreter string) bool {
	base := strings.ToLower(filepath.Base(strings.ReplaceAll(interpreter, `\`, "/")))
	base = strings.TrimSuffix(base, ".exe")
	return base == WindowsPowerShell || base == PowerShellCore
}
