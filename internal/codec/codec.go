// SPDX-License-Identifier: MPL-2.0

package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Stream names a process output stream.
const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Stderr code page sources.
const (
	// SourceAuto queries the operating system for its OEM code page.
	SourceAuto = "auto"
	// SourceCommand runs a code-page-reporting command (chcp) and parses it.
	SourceCommand = "command"
)

// ErrResolve is the sentinel error wrapped by ResolveError.
var ErrResolve = errors.New("cannot resolve codec")

// DefaultCodePageCommand reports the active console code page on Windows.
var DefaultCodePageCommand = []string{"cmd", "/c", "chcp"}

type (
	// Stream names a process output stream.
	Stream string

	// Set holds the encodings for one invocation.
	Set struct {
		// Argument encodes text passed through the process argument vector
		// before base64 is applied.
		Argument encoding.Encoding
		// Script encodes the script document written to disk.
		Script encoding.Encoding
		// Stdout decodes the interpreter's standard output.
		Stdout encoding.Encoding
		// Stderr decodes the interpreter's standard error.
		Stderr encoding.Encoding
		// StderrCodePage is the code page Stderr was derived from.
		StderrCodePage CodePage
	}

	// Options configures a Resolver.
	Options struct {
		// StderrCodePage is SourceAuto, SourceCommand or an explicit code
		// page such as "850" or "cp850". Empty means SourceAuto.
		StderrCodePage string
		// CodePageCommand is the argv run for SourceCommand.
		CodePageCommand []string
	}

	// Resolver determines the encodings for the three boundaries.
	Resolver struct {
		opts Options
		// runCommand and systemCodePage are replaced in tests.
		runCommand     func(ctx context.Context, argv []string) ([]byte, error)
		systemCodePage func() (CodePage, error)
	}

	// ResolveError is returned when a boundary's encoding cannot be
	// determined. It wraps ErrResolve for errors.Is() compatibility.
	ResolveError struct {
		Stream Stream
		Source string
		Cause  error
	}
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s encoding from %s: %v", e.Stream, e.Source, e.Cause)
}

// Unwrap returns both ErrResolve and the underlying cause.
func (e *ResolveError) Unwrap() []error { return []error{ErrResolve, e.Cause} }

// NewResolver creates a resolver for opts.
func NewResolver(opts Options) *Resolver {
	if opts.StderrCodePage == "" {
		opts.StderrCodePage = SourceAuto
	}
	if len(opts.CodePageCommand) == 0 {
		opts.CodePageCommand = DefaultCodePageCommand
	}
	return &Resolver{
		opts:           opts,
		runCommand:     runCodePageCommand,
		systemCodePage: systemOEMCodePage,
	}
}

// ResolveArgument returns the encoding applied to argument payloads before
// base64.
func (r *Resolver) ResolveArgument() encoding.Encoding {
	return argumentEncoding
}

// ResolveScript returns the encoding for the script document.
func (r *Resolver) ResolveScript() encoding.Encoding {
	return unicode.UTF8BOM
}

// ResolveStream returns the decoder for one of the interpreter's streams.
func (r *Resolver) ResolveStream(ctx context.Context, stream Stream) (encoding.Encoding, CodePage, error) {
	switch stream {
	case Stdout:
		return unicode.UTF8BOM, CodePageUTF8, nil
	case Stderr:
		cp, err := r.stderrCodePage(ctx)
		if err != nil {
			return nil, 0, &ResolveError{Stream: stream, Source: r.opts.StderrCodePage, Cause: err}
		}
		enc, err := cp.Encoding()
		if err != nil {
			return nil, 0, &ResolveError{Stream: stream, Source: r.opts.StderrCodePage, Cause: err}
		}
		return enc, cp, nil
	default:
		return nil, 0, &ResolveError{Stream: stream, Source: "stream", Cause: fmt.Errorf("unknown stream %q", stream)}
	}
}

// Resolve determines every encoding for one invocation.
func (r *Resolver) Resolve(ctx context.Context) (Set, error) {
	stdout, _, err := r.ResolveStream(ctx, Stdout)
	if err != nil {
		return Set{}, err
	}
	stderr, cp, err := r.ResolveStream(ctx, Stderr)
	if err != nil {
		return Set{}, err
	}
	return Set{
		Argument:       r.ResolveArgument(),
		Script:         r.ResolveScript(),
		Stdout:         stdout,
		Stderr:         stderr,
		StderrCodePage: cp,
	}, nil
}

func (r *Resolver) stderrCodePage(ctx context.Context) (CodePage, error) {
	switch strings.ToLower(r.opts.StderrCodePage) {
	case SourceAuto:
		return r.systemCodePage()
	case SourceCommand:
		out, err := r.runCommand(ctx, r.opts.CodePageCommand)
		if err != nil {
			return 0, err
		}
		return ParseChcpOutput(string(out))
	default:
		return ParseCodePage(r.opts.StderrCodePage)
	}
}

func runCodePageCommand(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("no code page command configured")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", strings.Join(argv, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Decode converts raw bytes from stream into text.
func (s Set) Decode(stream Stream, raw []byte) (string, error) {
	enc := s.Stdout
	if stream == Stderr {
		enc = s.Stderr
	}
	if enc == nil {
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", stream, err)
	}
	return string(out), nil
}

// EncodeScript converts script text into the bytes written to disk.
func (s Set) EncodeScript(text string) ([]byte, error) {
	enc := s.Script
	if enc == nil {
		enc = unicode.UTF8BOM
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return out, nil
}
