// SPDX-License-Identifier: MPL-2.0

// Package script synthesizes the PowerShell document that applies a user
// pipeline to every fragment of a snapshot, and owns the workspace slots the
// document and its output artifact live in.
//
// A slot is allocated per invocation. Under the default "unique" policy every
// invocation gets a fresh temporary directory, removed on release. The
// "fixed" policy reuses one well-known directory and serializes invocations
// with an in-process mutex plus an advisory file lock shared across
// processes.
package script
