// SPDX-License-Identifier: MPL-2.0

// Package platform provides host-specific defaults for locating and naming
// the PowerShell interpreter.
package platform
