// SPDX-License-Identifier: MPL-2.0

// Package correlate reads the output artifact an interpreter run leaves in
// its slot and turns it into one result per input fragment, in input order.
//
// Results are matched to fragments purely by position. The correlator never
// returns a partial result set: a missing artifact, malformed content or a
// count that differs from the fragment count is an *Error.
package correlate
