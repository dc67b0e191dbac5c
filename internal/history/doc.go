// SPDX-License-Identifier: MPL-2.0

// Package history keeps the pipelines a user ran successfully and parses the
// intrinsic commands that operate on them.
//
// The store is most-recent-first, never holds duplicates and never grows
// beyond its cap. It is persisted only on request, as UTF-8 text with one
// entry per line.
package history
