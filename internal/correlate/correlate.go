// SPDX-License-Identifier: MPL-2.0

package correlate

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/poshfilter/poshfilter/internal/script"
)

const (
	rootElement   = "outputs"
	outputElement = "out"
	filePrefix    = "out_"
	fileSuffix    = ".txt"
)

// ErrCorrelation is the sentinel error wrapped by Error.
var ErrCorrelation = errors.New("interpreter output could not be correlated")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type (
	// Error describes why an output artifact could not be mapped back onto
	// the fragments.
	Error struct {
		// Artifact is the file or directory that was read.
		Artifact string
		// Want is the number of fragments.
		Want int
		// Got is the number of results found, or -1 if the artifact could
		// not be parsed.
		Got int
		// Err is the underlying cause, if any.
		Err error
	}

	// Options configures a Correlator.
	Options struct {
		// NormalizeNewlines converts CRLF line endings in results to LF.
		NormalizeNewlines bool
	}

	// Correlator collects results from slots.
	Correlator struct {
		opts Options
	}
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("read %s: %v", e.Artifact, e.Err)
	default:
		return fmt.Sprintf("%s holds %d results for %d fragments", e.Artifact, e.Got, e.Want)
	}
}

// Unwrap returns ErrCorrelation and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorrelation}
	}
	return []error{ErrCorrelation, e.Err}
}

// New creates a correlator.
func New(opts Options) *Correlator {
	return &Correlator{opts: opts}
}

// Collect reads the results doc's interpreter run left in slot.
func (c *Correlator) Collect(slot *script.Slot, doc *script.Document) ([]string, error) {
	var (
		results []string
		err     error
	)
	switch doc.Output {
	case script.OutputFiles:
		results, err = ReadFiles(slot.OutputDir, doc.Count)
	default:
		var f *os.File
		f, err = os.Open(slot.OutputPath)
		if err != nil {
			return nil, &Error{Artifact: slot.OutputPath, Want: doc.Count, Got: -1, Err: err}
		}
		defer f.Close()
		results, err = ReadXML(f, doc.Count)
		var ce *Error
		if errors.As(err, &ce) && ce.Artifact == "" {
			ce.Artifact = slot.OutputPath
		}
	}
	if err != nil {
		return nil, err
	}
	if c.opts.NormalizeNewlines {
		for i, r := range results {
			results[i] = strings.ReplaceAll(r, "\r\n", "\n")
		}
	}
	return results, nil
}

// ReadXML parses an <outputs> document and returns the text of each <out>
// element in document order, with one trailing line separator removed.
// Adjacent CDATA sections inside one element are concatenated.
func ReadXML(r io.Reader, want int) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Want: want, Got: -1, Err: err}
	}
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM)))

	results, err := decodeOutputs(dec)
	if err != nil {
		return nil, &Error{Want: want, Got: -1, Err: err}
	}
	if len(results) != want {
		return nil, &Error{Want: want, Got: len(results)}
	}
	return results, nil
}

func decodeOutputs(dec *xml.Decoder) ([]string, error) {
	var (
		results    []string
		sawRoot    bool
		rootClosed bool
		inOut      bool
		current    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case rootClosed:
				return nil, fmt.Errorf("<%s> after </%s>", t.Name.Local, rootElement)
			case !sawRoot:
				if t.Name.Local != rootElement {
					return nil, fmt.Errorf("root element is <%s>, want <%s>", t.Name.Local, rootElement)
				}
				sawRoot = true
			case inOut:
				return nil, fmt.Errorf("unexpected <%s> inside <%s>", t.Name.Local, outputElement)
			case t.Name.Local != outputElement:
				return nil, fmt.Errorf("unexpected <%s> inside <%s>", t.Name.Local, rootElement)
			default:
				inOut = true
				current.Reset()
			}
		case xml.EndElement:
			if inOut {
				results = append(results, StripTrailingNewline(current.String()))
				inOut = false
			} else {
				rootClosed = true
			}
		case xml.CharData:
			switch {
			case inOut:
				current.Write(t)
			case rootClosed && len(bytes.TrimSpace(t)) > 0:
				return nil, fmt.Errorf("text after </%s>", rootElement)
			}
		}
	}
	if !sawRoot {
		return nil, fmt.Errorf("no <%s> element", rootElement)
	}
	return results, nil
}

// ReadFiles reads out_<i>.txt files from dir. Indices must be exactly
// 0..want-1.
func ReadFiles(dir string, want int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, &Error{Artifact: dir, Want: want, Got: -1, Err: err}
	}

	type indexed struct {
		index int
		path  string
	}
	files := make([]indexed, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), filePrefix), fileSuffix)
		n, convErr := strconv.Atoi(name)
		if convErr != nil || n < 0 {
			return nil, &Error{Artifact: m, Want: want, Got: -1, Err: fmt.Errorf("unexpected output file name")}
		}
		files = append(files, indexed{index: n, path: m})
	}
	slices.SortFunc(files, func(a, b indexed) int { return a.index - b.index })

	if len(files) != want {
		return nil, &Error{Artifact: dir, Want: want, Got: len(files)}
	}
	results := make([]string, want)
	for i, f := range files {
		if f.index != i {
			return nil, &Error{Artifact: dir, Want: want, Got: len(files), Err: fmt.Errorf("missing %s%d%s", filePrefix, i, fileSuffix)}
		}
		data, readErr := os.ReadFile(f.path)
		if readErr != nil {
			return nil, &Error{Artifact: f.path, Want: want, Got: -1, Err: readErr}
		}
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return nil, &Error{Artifact: f.path, Want: want, Got: -1, Err: fmt.Errorf("not valid UTF-8")}
		}
		results[i] = StripTrailingNewline(string(data))
	}
	return results, nil
}

// StripTrailingNewline removes one trailing "\r\n" or "\n", the separator
// Out-String appends to every result.
func StripTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(s, "\n")
}
