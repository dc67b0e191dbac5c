// SPDX-License-Identifier: MPL-2.0

package script

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/poshfilter/poshfilter/internal/codec"
)

//go:embed filter.ps1.tmpl
var filterTemplate string

// ErrEmptyPipeline is returned when the pipeline text is blank.
var ErrEmptyPipeline = errors.New("pipeline is empty")

type (
	// Synthesizer renders and writes script documents.
	Synthesizer struct {
		opts Options
		tmpl *template.Template
	}

	// Document is a rendered script plus the extra process arguments it
	// expects.
	Document struct {
		// Source is the script text before encoding.
		Source string
		// Args are appended to the interpreter argv after the script path.
		Args []string
		// Output is the artifact format the script writes.
		Output OutputFormat
		// Count is the number of fragments the document processes.
		Count int
	}

	templateData struct {
		OutputPath         string
		Fragments          string
		Pipeline           string
		Transport          Transport
		Output             OutputFormat
		ReconfigureConsole bool
	}
)

// NewSynthesizer validates opts and parses the script template.
func NewSynthesizer(opts Options) (*Synthesizer, error) {
	defaults := DefaultOptions()
	if opts.Transport == "" {
		opts.Transport = defaults.Transport
	}
	if opts.Output == "" {
		opts.Output = defaults.Output
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	tmpl, err := template.New("filter.ps1").Parse(filterTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse script template: %w", err)
	}
	return &Synthesizer{opts: opts, tmpl: tmpl}, nil
}

// Options returns the synthesizer's effective options.
func (s *Synthesizer) Options() Options { return s.opts }

// Render builds the script document for texts and pipeline, targeting the
// output location of slot.
func (s *Synthesizer) Render(slot *Slot, texts []string, pipeline string) (*Document, error) {
	pipeline = strings.TrimSpace(pipeline)
	if pipeline == "" {
		return nil, ErrEmptyPipeline
	}

	output := s.opts.Output
	if output == OutputXML && slices.ContainsFunc(texts, hasNonXMLChar) {
		output = OutputFiles
	}

	data := templateData{
		Pipeline:           pipeline,
		Transport:          s.opts.Transport,
		Output:             output,
		ReconfigureConsole: s.opts.ReconfigureConsole,
	}
	if output == OutputFiles {
		data.OutputPath = codec.QuoteLiteral(slot.OutputDir)
	} else {
		data.OutputPath = codec.QuoteLiteral(slot.OutputPath)
	}

	doc := &Document{Output: output, Count: len(texts)}
	switch s.opts.Transport {
	case TransportBase64:
		args, err := encodeArgs(texts)
		if err != nil {
			return nil, err
		}
		doc.Args = args
	default:
		data.Fragments = codec.RenderArray(texts)
	}

	var sb strings.Builder
	if err := s.tmpl.Execute(&sb, data); err != nil {
		return nil, fmt.Errorf("render script template: %w", err)
	}
	doc.Source = sb.String()
	return doc, nil
}

// hasNonXMLChar reports whether text holds a character XML 1.0 cannot carry,
// such as ESC or form feed. The xml output cannot round-trip such fragments.
func hasNonXMLChar(text string) bool {
	return strings.ContainsFunc(text, func(r rune) bool {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return false
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
			return true
		}
		return r >= 0xD800 && r <= 0xDFFF
	})
}

func encodeArgs(texts []string) ([]string, error) {
	args := make([]string, len(texts))
	total := 0
	for i, t := range texts {
		arg, err := codec.EncodeArgument(t)
		if err != nil {
			return nil, err
		}
		args[i] = arg
		total += len(arg) + 1
	}
	if total > MaxArgumentLength {
		return nil, &ArgumentTooLongError{Length: total, Limit: MaxArgumentLength}
	}
	return args, nil
}

// Write encodes doc with the script codec of set and writes it to the slot's
// script path. The file is flushed and closed before Write returns.
func (s *Synthesizer) Write(slot *Slot, doc *Document, set codec.Set) error {
	raw, err := set.EncodeScript(doc.Source)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(slot.ScriptPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return &UnwritableError{Op: "create script", Path: slot.ScriptPath, Err: err}
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return &UnwritableError{Op: "write script", Path: slot.ScriptPath, Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return &UnwritableError{Op: "flush script", Path: slot.ScriptPath, Err: err}
	}
	if err := f.Close(); err != nil {
		return &UnwritableError{Op: "close script", Path: slot.ScriptPath, Err: err}
	}
	return nil
}

// Synthesize renders and writes a document in one step.
func (s *Synthesizer) Synthesize(slot *Slot, texts []string, pipeline string, set codec.Set) (*Document, error) {
	doc, err := s.Render(slot, texts, pipeline)
	if err != nil {
		return nil, err
	}
	if err := s.Write(slot, doc, set); err != nil {
		return nil, err
	}
	return doc, nil
}
