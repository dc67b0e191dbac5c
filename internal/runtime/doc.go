// SPDX-License-Identifier: MPL-2.0

// Package runtime runs a synthesized script document through the PowerShell
// interpreter and classifies the outcome.
//
// The interpreter is always invoked with the same argument vector
// (-noprofile -nologo -noninteractive -executionpolicy remotesigned -file
// <script>), never through a shell. Any child console window is hidden.
// stdout and stderr are buffered in memory until the process exits and are
// then decoded with the stream encodings of a codec.Set.
//
// Outcomes map onto three results:
//   - the process could not be started: *EnvironmentError
//   - the process wrote to stderr, exited non-zero or timed out: *PipelineError
//   - otherwise: a *Result with the decoded streams
package runtime
