// SPDX-License-Identifier: MPL-2.0

// Package fragment models the text fragments a filter run operates on.
//
// A Surface reports its current selections in a stable order and replaces
// one selection at a time. Replacing a selection may move every selection
// that follows it, so callers take a Snapshot once, before the first
// mutation, and address results strictly by snapshot index.
//
// Buffer is an in-memory Surface over a single text document. It is what the
// CLI uses to expose files, standard input, line ranges and regex matches as
// fragments.
package fragment
