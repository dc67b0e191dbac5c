// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetConfigHome points the platform's home and user configuration
// directories at dir and returns a cleanup function restoring them.
//
// Platform handling:
//   - Windows: USERPROFILE and APPDATA
//   - macOS: HOME (config lives under Library/Application Support)
//   - Linux: HOME and XDG_CONFIG_HOME
//
// Tests calling it must not run in parallel.
func SetConfigHome(t testing.TB, dir string) func() {
	t.Helper()

	var cleanups []func()
	switch runtime.GOOS {
	case "windows":
		cleanups = append(cleanups, MustSetenv(t, "USERPROFILE", dir), MustSetenv(t, "APPDATA", dir))
	case "darwin":
		cleanups = append(cleanups, MustSetenv(t, "HOME", dir))
	default:
		cleanups = append(cleanups, MustSetenv(t, "HOME", dir), MustSetenv(t, "XDG_CONFIG_HOME", dir))
	}
	return func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
}
