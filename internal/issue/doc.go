// SPDX-License-Identifier: MPL-2.0

// Package issue holds the catalog of user-facing problems poshfilter can
// report, rendered as Markdown with glamour, and ActionableError for
// attaching an operation and fix suggestions to an error.
package issue
