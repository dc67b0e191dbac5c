// SPDX-License-Identifier: MPL-2.0

// Package filter runs one request/response cycle of the region filter:
// snapshot the surface's fragments, prompt for a pipeline, dispatch the
// intrinsic history commands, and otherwise resolve codecs, synthesize the
// script, run the interpreter, correlate the results and write them back.
//
// Results are applied strictly by snapshot index, in descending span order,
// and only after every result has been collected, so a failed run never
// mutates a fragment.
package filter
