// SPDX-License-Identifier: MPL-2.0

package script

import (
	"bytes"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/poshfilter/poshfilter/internal/codec"
)

func testSlot(t *testing.T) *Slot {
	t.Helper()
	return newSlot(t.TempDir())
}

func mustSynthesizer(t *testing.T, opts Options) *Synthesizer {
	t.Helper()
	s, err := NewSynthesizer(opts)
	if err != nil {
		t.Fatalf("NewSynthesizer() error: %v", err)
	}
	return s
}

// fragmentsOf extracts the array literal from a rendered literal-transport
// document.
func fragmentsOf(t *testing.T, source string) []string {
	t.Helper()
	const open = "$fragments = @(\n"
	start := strings.Index(source, open)
	if start < 0 {
		t.Fatalf("no fragment array in script:\n%s", source)
	}
	body := source[start+len(open):]
	end := strings.Index(body, "\n)\n")
	if end < 0 {
		t.Fatalf("unterminated fragment array in script:\n%s", source)
	}
	got, err := codec.ParseArray(body[:end])
	if err != nil {
		t.Fatalf("ParseArray() error: %v", err)
	}
	return got
}

func TestSynthesizer_RenderLiteral(t *testing.T) {
	t.Parallel()

	s := mustSynthesizer(t, DefaultOptions())
	slot := testSlot(t)
	texts := []string{"hello", "it's", "multi\nline"}

	doc, err := s.Render(slot, texts, "%{ $_.ToUpper() }")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	if !strings.Contains(doc.Source, "'it''s'") {
		t.Errorf("rendered script does not contain escaped literal 'it''s':\n%s", doc.Source)
	}
	if got := fragmentsOf(t, doc.Source); !slices.Equal(got, texts) {
		t.Errorf("fragment array round trip = %q, want %q", got, texts)
	}
	if !strings.Contains(doc.Source, "$fragment | %{ $_.ToUpper() } | Out-String") {
		t.Errorf("pipeline not substituted:\n%s", doc.Source)
	}
	if !strings.Contains(doc.Source, "$outputPath = "+codec.QuoteLiteral(slot.OutputPath)) {
		t.Errorf("output path not substituted:\n%s", doc.Source)
	}
	if !strings.Contains(doc.Source, "chcp.com 65001") {
		t.Errorf("console reconfiguration missing:\n%s", doc.Source)
	}
	if !strings.Contains(doc.Source, "WriteCData") {
		t.Errorf("xml output writer missing:\n%s", doc.Source)
	}
	if len(doc.Args) != 0 {
		t.Errorf("literal transport produced args %q", doc.Args)
	}
	if doc.Count != len(texts) || doc.Output != OutputXML {
		t.Errorf("doc = {Count: %d, Output: %s}, want {%d, xml}", doc.Count, doc.Output, len(texts))
	}
}

func TestSynthesizer_RenderBase64Files(t *testing.T) {
	t.Parallel()

	s := mustSynthesizer(t, Options{Transport: TransportBase64, Output: OutputFiles})
	slot := testSlot(t)
	texts := []string{"a", "b'c", "日本"}

	doc, err := s.Render(slot, texts, "%{$_}")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(doc.Source, "b'c") || strings.Contains(doc.Source, "日本") {
		t.Errorf("base64 transport leaked fragment text into the script:\n%s", doc.Source)
	}
	if !strings.Contains(doc.Source, "FromBase64String") {
		t.Errorf("base64 decoder missing:\n%s", doc.Source)
	}
	if !strings.Contains(doc.Source, "$outputPath = "+codec.QuoteLiteral(slot.OutputDir)) {
		t.Errorf("files output should target the output directory:\n%s", doc.Source)
	}
	if !strings.Contains(doc.Source, "out_{0}.txt") {
		t.Errorf("files output writer missing:\n%s", doc.Source)
	}
	if strings.Contains(doc.Source, "chcp") {
		t.Errorf("console reconfiguration present although disabled:\n%s", doc.Source)
	}

	decoded := make([]string, len(doc.Args))
	for i, arg := range doc.Args {
		text, err := codec.DecodeArgument(arg)
		if err != nil {
			t.Fatalf("DecodeArgument(%q) error: %v", arg, err)
		}
		decoded[i] = text
	}
	if !slices.Equal(decoded, texts) {
		t.Errorf("decoded args = %q, want %q", decoded, texts)
	}
}

func TestSynthesizer_RenderFallsBackToFilesForControlCharacters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		texts []string
		want  OutputFormat
	}{
		{"plain", []string{"a\tb", "c\r\n"}, OutputXML},
		{"escape", []string{"ok", "\x1b[31mred"}, OutputFiles},
		{"form feed", []string{"page\fbreak"}, OutputFiles},
		{"nul", []string{"a\x00b"}, OutputFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := mustSynthesizer(t, DefaultOptions())
			slot := testSlot(t)
			doc, err := s.Render(slot, tt.texts, "%{$_}")
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if doc.Output != tt.want {
				t.Errorf("doc.Output = %s, want %s", doc.Output, tt.want)
			}
			if tt.want == OutputFiles && !strings.Contains(doc.Source, "$outputPath = "+codec.QuoteLiteral(slot.OutputDir)) {
				t.Errorf("files output should target the output directory:\n%s", doc.Source)
			}
		})
	}
}

func TestSynthesizer_RenderErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty pipeline", func(t *testing.T) {
		t.Parallel()
		s := mustSynthesizer(t, DefaultOptions())
		if _, err := s.Render(testSlot(t), []string{"x"}, "   "); !errors.Is(err, ErrEmptyPipeline) {
			t.Errorf("Render() error = %v, want ErrEmptyPipeline", err)
		}
	})

	t.Run("argument too long", func(t *testing.T) {
		t.Parallel()
		s := mustSynthesizer(t, Options{Transport: TransportBase64, Output: OutputXML})
		big := strings.Repeat("x", MaxArgumentLength)
		_, err := s.Render(testSlot(t), []string{big}, "%{$_}")
		if !errors.Is(err, ErrArgumentTooLong) {
			t.Fatalf("Render() error = %v, want ErrArgumentTooLong", err)
		}
		var tooLong *ArgumentTooLongError
		if !errors.As(err, &tooLong) || tooLong.Length <= tooLong.Limit {
			t.Errorf("Render() error = %#v, want length above limit", err)
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		t.Parallel()
		if _, err := NewSynthesizer(Options{Transport: "carrier-pigeon"}); err == nil {
			t.Error("NewSynthesizer() expected error for unknown transport")
		}
	})
}

func TestSynthesizer_Write(t *testing.T) {
	t.Parallel()

	s := mustSynthesizer(t, DefaultOptions())
	slot := testSlot(t)
	set, err := codec.NewResolver(codec.Options{StderrCodePage: "65001"}).Resolve(t.Context())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	doc, err := s.Synthesize(slot, []string{"ü"}, "%{$_}", set)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}

	raw, err := os.ReadFile(slot.ScriptPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("script file is missing the UTF-8 byte order mark")
	}
	if string(raw[3:]) != doc.Source {
		t.Error("script file content differs from rendered source")
	}
}

func TestSynthesizer_WriteUnwritable(t *testing.T) {
	t.Parallel()

	s := mustSynthesizer(t, DefaultOptions())
	slot := newSlot(t.TempDir() + "/missing/dir")
	doc, err := s.Render(slot, []string{"x"}, "%{$_}")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	err = s.Write(slot, doc, codec.Set{})
	if !errors.Is(err, ErrScriptUnwritable) {
		t.Fatalf("Write() error = %v, want ErrScriptUnwritable", err)
	}
	var unwritable *UnwritableError
	if !errors.As(err, &unwritable) || unwritable.Path != slot.ScriptPath {
		t.Errorf("Write() error = %#v, want UnwritableError for %s", err, slot.ScriptPath)
	}
}

func TestParseModes(t *testing.T) {
	t.Parallel()

	if tr, err := ParseTransport(" Base64 "); err != nil || tr != TransportBase64 {
		t.Errorf("ParseTransport() = %q, %v", tr, err)
	}
	if _, err := ParseTransport("stdin"); err == nil {
		t.Error("ParseTransport(stdin) expected error")
	}
	if f, err := ParseOutputFormat("FILES"); err != nil || f != OutputFiles {
		t.Errorf("ParseOutputFormat() = %q, %v", f, err)
	}
	if _, err := ParseOutputFormat("json"); err == nil {
		t.Error("ParseOutputFormat(json) expected error")
	}
	if p, err := ParseSlotPolicy(""); err != nil || p != SlotUnique {
		t.Errorf("ParseSlotPolicy(\"\") = %q, %v", p, err)
	}
	if _, err := ParseSlotPolicy("shared"); err == nil {
		t.Error("ParseSlotPolicy(shared) expected error")
	}
}
