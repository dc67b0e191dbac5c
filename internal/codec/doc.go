// SPDX-License-Identifier: MPL-2.0

// Package codec resolves the text encodings used at the three boundaries a
// filter run crosses:
//
//   - Argument passing: fragments handed to the interpreter on its command
//     line are UTF-16LE encoded and then base64 encoded, or rendered inline
//     as single-quoted PowerShell literals.
//   - Script source: the script file is UTF-8 with a byte-order mark.
//     Windows PowerShell misreads BOM-less UTF-8 scripts as the ANSI code page.
//   - Process streams: stdout is UTF-8 because the script switches the
//     console to code page 65001; stderr is written in the host's OEM code
//     page because it does not pass through that switch.
//
// A Resolver produces an immutable Set once per invocation. The Set is then
// threaded through script synthesis and process execution.
package codec
