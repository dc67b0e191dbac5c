// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/poshfilter/poshfilter/internal/codec"
)

const (
	// FakeInterpreterEnv makes a test binary's TestMain act as the fake
	// interpreter when set to "1".
	FakeInterpreterEnv = "POSHFILTER_TEST_FAKE_INTERPRETER"

	// FakeStderrCodePageEnv selects the code page the fake encodes its
	// diagnostics with. UTF-8 when unset.
	FakeStderrCodePageEnv = "POSHFILTER_TEST_FAKE_STDERR_CODEPAGE"
)

// Pipelines understood by the fake interpreter. Anything else is reported
// the way PowerShell reports an unknown command.
const (
	PipelineIdentity = "%{ $_ }"
	PipelineUpper    = "%{ $_.ToUpper() }"
	PipelineLower    = "%{ $_.ToLower() }"
	PipelineDouble   = "%{ $_ + $_ }"
	// PipelineFail writes "syntax error" to stderr and exits 1.
	PipelineFail = "throw 'syntax error'"
	// PipelineWarn succeeds but writes a warning to stderr.
	PipelineWarn = "%{ Write-Warning 'careful'; $_ }"
	// PipelineSleep blocks for 30 seconds.
	PipelineSleep = "%{ Start-Sleep -Seconds 30; $_ }"

	// The following only exist in the fake. They simulate broken
	// templates so correlation failures can be exercised.
	PipelineNoOutput  = "#fake:no-output"
	PipelineDropLast  = "#fake:drop-last"
	PipelineMalformed = "#fake:malformed"
)

// fakeArgs are the flags the fake insists on before -file's value.
var fakeArgs = []string{"-noprofile", "-nologo", "-noninteractive", "-executionpolicy", "remotesigned", "-file"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fakeScript is what the fake extracts from a synthesized document.
type fakeScript struct {
	outputPath string
	fragments  []string
	pipeline   string
	files      bool
}

// FakeInterpreterEnviron returns the environment entries that turn a
// re-executed test binary into the fake interpreter.
func FakeInterpreterEnviron(extra ...string) []string {
	return append([]string{FakeInterpreterEnv + "=1"}, extra...)
}

// IsFakeInterpreter reports whether the current process was started as
// the fake interpreter.
func IsFakeInterpreter() bool {
	return os.Getenv(FakeInterpreterEnv) == "1"
}

// RunFakeInterpreter behaves like `pwsh -file <script> [args...]` for the
// documents the script package synthesizes and returns the exit status.
func RunFakeInterpreter(args []string, stdout, stderr io.Writer) int {
	diag := newDiagnostics(stderr)

	if len(args) < len(fakeArgs)+1 || !slices.Equal(args[:len(fakeArgs)], fakeArgs) {
		return diag.fail(2, "unexpected arguments: %q", args)
	}
	scriptPath := args[len(fakeArgs)]
	extra := args[len(fakeArgs)+1:]

	raw, err := os.ReadFile(scriptPath)
	if err != nil {
		return diag.fail(1, "cannot read script %s: %v", scriptPath, err)
	}
	if !bytes.HasPrefix(raw, utf8BOM) {
		return diag.fail(1, "script %s is not UTF-8 with a byte order mark", scriptPath)
	}

	doc, err := parseFakeScript(string(raw[len(utf8BOM):]), extra)
	if err != nil {
		return diag.fail(1, "ParserError: %v", err)
	}

	outputs := make([]string, 0, len(doc.fragments))
	for _, fragment := range doc.fragments {
		out, code, msg := applyFakePipeline(doc.pipeline, fragment)
		if msg != "" {
			return diag.fail(code, "%s", msg)
		}
		outputs = append(outputs, out+"\r\n")
	}

	switch doc.pipeline {
	case PipelineNoOutput:
		return 0
	case PipelineDropLast:
		if len(outputs) > 0 {
			outputs = outputs[:len(outputs)-1]
		}
	case PipelineWarn:
		diag.write("WARNING: careful")
	}

	if doc.pipeline == PipelineMalformed {
		err = os.WriteFile(doc.outputPath, []byte("<outputs><out><![CDATA[x"), 0o600)
	} else if doc.files {
		err = writeFakeFiles(doc.outputPath, outputs)
	} else {
		err = writeFakeXML(doc.outputPath, outputs)
	}
	if err != nil {
		return diag.fail(1, "cannot write output: %v", err)
	}
	fmt.Fprintln(stdout, "Active code page: 65001")
	return 0
}

func applyFakePipeline(pipeline, fragment string) (out string, code int, msg string) {
	switch pipeline {
	case PipelineIdentity, PipelineWarn, PipelineNoOutput, PipelineDropLast, PipelineMalformed:
		return fragment, 0, ""
	case PipelineUpper:
		return strings.ToUpper(fragment), 0, ""
	case PipelineLower:
		return strings.ToLower(fragment), 0, ""
	case PipelineDouble:
		return fragment + fragment, 0, ""
	case PipelineSleep:
		time.Sleep(30 * time.Second)
		return fragment, 0, ""
	case PipelineFail:
		return "", 1, "syntax error"
	default:
		return "", 1, fmt.Sprintf("The term '%s' is not recognized as a name of a cmdlet, function, script file, or executable program.", pipeline)
	}
}

func parseFakeScript(src string, extra []string) (*fakeScript, error) {
	doc := &fakeScript{files: strings.Contains(src, "out_{0}.txt")}

	const outputMarker = "$outputPath = "
	i := strings.Index(src, outputMarker)
	if i < 0 {
		return nil, fmt.Errorf("no $outputPath assignment")
	}
	path, _, err := codec.UnquoteLiteral(src[i+len(outputMarker):])
	if err != nil {
		return nil, fmt.Errorf("$outputPath: %w", err)
	}
	doc.outputPath = path

	switch {
	case strings.Contains(src, "$fragments = @($args"):
		for _, arg := range extra {
			text, err := codec.DecodeArgument(arg)
			if err != nil {
				return nil, err
			}
			doc.fragments = append(doc.fragments, text)
		}
	default:
		const arrayMarker = "$fragments = @("
		j := strings.Index(src, arrayMarker)
		if j < 0 {
			return nil, fmt.Errorf("no $fragments assignment")
		}
		fragments, err := parseFakeArray(src[j+len(arrayMarker):])
		if err != nil {
			return nil, fmt.Errorf("$fragments: %w", err)
		}
		doc.fragments = fragments
	}

	const pipelineMarker = "$result = $fragment | "
	k := strings.Index(src, pipelineMarker)
	if k < 0 {
		return nil, fmt.Errorf("no pipeline")
	}
	rest := src[k+len(pipelineMarker):]
	end := strings.Index(rest, " | Out-String")
	if end < 0 {
		return nil, fmt.Errorf("pipeline is not terminated by Out-String")
	}
	doc.pipeline = rest[:end]
	return doc, nil
}

// parseFakeArray reads comma-separated single-quoted literals up to the
// closing parenthesis of an @( ... ) expression.
func parseFakeArray(s string) ([]string, error) {
	var out []string
	rest := strings.TrimLeft(s, " \t\r\n")
	for !strings.HasPrefix(rest, ")") {
		value, tail, err := codec.UnquoteLiteral(rest)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
		rest = strings.TrimLeft(tail, " \t\r\n")
		if strings.HasPrefix(rest, ",") {
			rest = strings.TrimLeft(rest[1:], " \t\r\n")
		} else if !strings.HasPrefix(rest, ")") {
			return nil, fmt.Errorf("missing ',' or ')'")
		}
	}
	return out, nil
}

func writeFakeXML(path string, outputs []string) error {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?><outputs>`)
	for _, out := range outputs {
		sb.WriteString("<out><![CDATA[")
		sb.WriteString(strings.ReplaceAll(out, "]]>", "]]]]><![CDATA[>"))
		sb.WriteString("]]></out>")
	}
	sb.WriteString("</outputs>")
	return os.WriteFile(path, []byte(sb.String()), 0o600)
}

func writeFakeFiles(dir string, outputs []string) error {
	for i, out := range outputs {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("out_%d.txt", i)), []byte(out), 0o600); err != nil {
			return err
		}
	}
	return nil
}

type diagnostics struct {
	w   io.Writer
	enc func(string) []byte
}

func newDiagnostics(w io.Writer) *diagnostics {
	d := &diagnostics{w: w, enc: func(s string) []byte { return []byte(s) }}
	cp, err := codec.ParseCodePage(os.Getenv(FakeStderrCodePageEnv))
	if err != nil {
		return d
	}
	enc, err := cp.Encoding()
	if err != nil {
		return d
	}
	d.enc = func(s string) []byte {
		b, encErr := enc.NewEncoder().Bytes([]byte(s))
		if encErr != nil {
			return []byte(s)
		}
		return b
	}
	return d
}

func (d *diagnostics) write(msg string) {
	_, _ = d.w.Write(d.enc(msg + "\r\n"))
}

func (d *diagnostics) fail(code int, format string, args ...any) int {
	d.write(fmt.Sprintf(format, args...))
	return code
}
