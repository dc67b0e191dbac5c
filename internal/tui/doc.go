// SPDX-License-Identifier: MPL-2.0

// Package tui provides the terminal collaborators of the filter: a huh
// input form for the pipeline prompt, a huh select list for history, and a
// lipgloss status notifier.
package tui
