// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"
	"slices"
	"strings"
)

// Transports select how fragment text reaches the interpreter.
const (
	// TransportLiteral embeds the fragments in the script as a single-quoted
	// array literal.
	TransportLiteral Transport = "literal"
	// TransportBase64 passes each fragment as an extra process argument,
	// base64 encoded UTF-16LE, decoded by the script.
	TransportBase64 Transport = "base64"
)

// Output formats select the artifact the script writes results into.
const (
	// OutputXML writes one <outputs> document with a CDATA <out> element per
	// fragment.
	OutputXML OutputFormat = "xml"
	// OutputFiles writes one out_<i>.txt file per fragment.
	OutputFiles OutputFormat = "files"
)

type (
	// Transport is a fragment transport mode.
	Transport string

	// OutputFormat is an output artifact format.
	OutputFormat string

	// Options configures a Synthesizer.
	Options struct {
		Transport Transport
		Output    OutputFormat
		// ReconfigureConsole switches the console to UTF-8 before running
		// the pipeline so stdout decodes as UTF-8.
		ReconfigureConsole bool
	}
)

// AllTransports returns every supported transport.
func AllTransports() []Transport {
	return []Transport{TransportLiteral, TransportBase64}
}

// AllOutputFormats returns every supported output format.
func AllOutputFormats() []OutputFormat {
	return []OutputFormat{OutputXML, OutputFiles}
}

// ParseTransport parses a transport name case-insensitively.
func ParseTransport(s string) (Transport, error) {
	t := Transport(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(AllTransports(), t) {
		return "", fmt.Errorf("unknown transport %q (want literal or base64)", s)
	}
	return t, nil
}

// ParseOutputFormat parses an output format name case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(AllOutputFormats(), f) {
		return "", fmt.Errorf("unknown output format %q (want xml or files)", s)
	}
	return f, nil
}

// DefaultOptions returns the options matching the default configuration.
func DefaultOptions() Options {
	return Options{
		Transport:          TransportLiteral,
		Output:             OutputXML,
		ReconfigureConsole: true,
	}
}

// Validate reports whether o names supported modes. Empty fields are
// filled from DefaultOptions by NewSynthesizer before validation.
func (o Options) Validate() error {
	if !slices.Contains(AllTransports(), o.Transport) {
		return fmt.Errorf("unknown transport %q", o.Transport)
	}
	if !slices.Contains(AllOutputFormats(), o.Output) {
		return fmt.Errorf("unknown output format %q", o.Output)
	}
	return nil
}
