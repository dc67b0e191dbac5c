// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment variable management (MustSetenv,
// SetConfigHome), file operations (MustWriteFile, MustReadFile, MustMkdirAll)
// and resource cleanup (MustClose).
//
// RunFakeInterpreter stands in for PowerShell: a test binary re-executes
// itself with FakeInterpreterEnv set and the fake interprets the documents
// the script package synthesizes.
package testutil
