// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package runtime

import "os/exec"

// hideWindow is a no-op: there is no console window to suppress.
func hideWindow(*exec.Cmd) {}
