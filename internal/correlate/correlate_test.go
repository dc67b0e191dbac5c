// SPDX-License-Identifier: MPL-2.0

package correlate

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/poshfilter/poshfilter/internal/script"
	"github.com/poshfilter/poshfilter/internal/testutil"
)

func TestReadXML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "single",
			doc:  `<?xml version="1.0" encoding="utf-8"?><outputs><out><![CDATA[HELLO` + "\r\n" + `]]></out></outputs>`,
			want: []string{"HELLO"},
		},
		{
			name: "order preserved",
			doc:  "<outputs>\n  <out><![CDATA[c\n]]></out>\n  <out><![CDATA[a\n]]></out>\n  <out><![CDATA[b\n]]></out>\n</outputs>",
			want: []string{"c", "a", "b"},
		},
		{
			name: "markup in payload",
			doc:  `<outputs><out><![CDATA[<b>&amp;</b>` + "\n" + `]]></out></outputs>`,
			want: []string{"<b>&amp;</b>"},
		},
		{
			name: "split CDATA terminator",
			doc:  `<outputs><out><![CDATA[a]]]]><![CDATA[>b` + "\n" + `]]></out></outputs>`,
			want: []string{"a]]>b"},
		},
		{
			name: "only one separator stripped",
			doc:  "<outputs><out><![CDATA[line\n\n]]></out><out></out></outputs>",
			want: []string{"line\n", ""},
		},
		{
			name: "byte order mark",
			doc:  "\xEF\xBB\xBF<outputs><out><![CDATA[ü]]></out></outputs>",
			want: []string{"ü"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadXML(strings.NewReader(tt.doc), len(tt.want))
			if err != nil {
				t.Fatalf("ReadXML() error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ReadXML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadXML_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		want    int
		wantGot int
	}{
		{"empty document", "", 1, -1},
		{"wrong root", "<results><out>x</out></results>", 1, -1},
		{"unknown child", "<outputs><item>x</item></outputs>", 1, -1},
		{"nested element", "<outputs><out><b>x</b></out></outputs>", 1, -1},
		{"truncated", "<outputs><out><![CDATA[x", 1, -1},
		{"element after root", "<outputs></outputs><out><![CDATA[x]]></out>", 1, -1},
		{"text after root", "<outputs><out>a</out></outputs>junk", 1, -1},
		{"too few", "<outputs><out>a</out><out>b</out></outputs>", 3, 2},
		{"too many", "<outputs><out>a</out><out>b</out></outputs>", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadXML(strings.NewReader(tt.doc), tt.want)
			if !errors.Is(err, ErrCorrelation) {
				t.Fatalf("ReadXML() error = %v, want ErrCorrelation", err)
			}
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("ReadXML() error = %T, want *Error", err)
			}
			if ce.Want != tt.want || ce.Got != tt.wantGot {
				t.Errorf("Error{Want: %d, Got: %d}, want {%d, %d}", ce.Want, ce.Got, tt.want, tt.wantGot)
			}
		})
	}
}

func TestReadFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Numeric, not lexical, ordering: out_10 sorts after out_9.
	for i := range 11 {
		testutil.MustWriteFile(t, filepath.Join(dir, "out_"+itoa(i)+".txt"), "r"+itoa(i)+"\r\n")
	}

	got, err := ReadFiles(dir, 11)
	if err != nil {
		t.Fatalf("ReadFiles() error: %v", err)
	}
	for i, r := range got {
		if want := "r" + itoa(i); r != want {
			t.Errorf("result[%d] = %q, want %q", i, r, want)
		}
	}
}

func TestReadFiles_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing index", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.MustWriteFile(t, filepath.Join(dir, "out_0.txt"), "a")
		testutil.MustWriteFile(t, filepath.Join(dir, "out_2.txt"), "c")
		if _, err := ReadFiles(dir, 2); !errors.Is(err, ErrCorrelation) {
			t.Errorf("ReadFiles() error = %v, want ErrCorrelation", err)
		}
	})

	t.Run("count mismatch", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.MustWriteFile(t, filepath.Join(dir, "out_0.txt"), "a")
		var ce *Error
		if _, err := ReadFiles(dir, 2); !errors.As(err, &ce) || ce.Got != 1 {
			t.Errorf("ReadFiles() error = %v, want count mismatch", err)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		t.Parallel()
		if _, err := ReadFiles(t.TempDir(), 1); !errors.Is(err, ErrCorrelation) {
			t.Errorf("ReadFiles() error = %v, want ErrCorrelation", err)
		}
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.MustWriteFile(t, filepath.Join(dir, "out_0.txt"), "\xff\xfe")
		if _, err := ReadFiles(dir, 1); !errors.Is(err, ErrCorrelation) {
			t.Errorf("ReadFiles() error = %v, want ErrCorrelation", err)
		}
	})
}

func TestCorrelator_Collect(t *testing.T) {
	t.Parallel()

	newSlot := func(t *testing.T) *script.Slot {
		t.Helper()
		slot, err := script.NewWorkspace(script.SlotUnique, t.TempDir(), nil).Allocate(t.Context())
		if err != nil {
			t.Fatalf("Allocate() error: %v", err)
		}
		t.Cleanup(func() { _ = slot.Release() })
		return slot
	}

	t.Run("xml with normalization", func(t *testing.T) {
		t.Parallel()
		slot := newSlot(t)
		testutil.MustWriteFile(t, slot.OutputPath, "<outputs><out><![CDATA[a\r\nb\r\n]]></out></outputs>")
		got, err := New(Options{NormalizeNewlines: true}).Collect(slot, &script.Document{Output: script.OutputXML, Count: 1})
		if err != nil {
			t.Fatalf("Collect() error: %v", err)
		}
		if !slices.Equal(got, []string{"a\nb"}) {
			t.Errorf("Collect() = %q, want [\"a\\nb\"]", got)
		}
	})

	t.Run("files without normalization", func(t *testing.T) {
		t.Parallel()
		slot := newSlot(t)
		testutil.MustWriteFile(t, filepath.Join(slot.OutputDir, "out_0.txt"), "a\r\nb\r\n")
		got, err := New(Options{}).Collect(slot, &script.Document{Output: script.OutputFiles, Count: 1})
		if err != nil {
			t.Fatalf("Collect() error: %v", err)
		}
		if !slices.Equal(got, []string{"a\r\nb"}) {
			t.Errorf("Collect() = %q, want [\"a\\r\\nb\"]", got)
		}
	})

	t.Run("missing artifact", func(t *testing.T) {
		t.Parallel()
		slot := newSlot(t)
		_, err := New(Options{}).Collect(slot, &script.Document{Output: script.OutputXML, Count: 1})
		if !errors.Is(err, ErrCorrelation) || !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("Collect() error = %v, want ErrCorrelation wrapping ErrNotExist", err)
		}
		var ce *Error
		if errors.As(err, &ce) && ce.Artifact != slot.OutputPath {
			t.Errorf("Artifact = %s, want %s", ce.Artifact, slot.OutputPath)
		}
	})

	t.Run("malformed artifact names the file", func(t *testing.T) {
		t.Parallel()
		slot := newSlot(t)
		testutil.MustWriteFile(t, slot.OutputPath, "not xml")
		_, err := New(Options{}).Collect(slot, &script.Document{Output: script.OutputXML, Count: 1})
		var ce *Error
		if !errors.As(err, &ce) || ce.Artifact != slot.OutputPath {
			t.Errorf("Collect() error = %v, want *Error naming %s", err, slot.OutputPath)
		}
	})
}

func TestStripTrailingNewline(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":        "",
		"a":       "a",
		"a\n":     "a",
		"a\r\n":   "a",
		"a\n\n":   "a\n",
		"a\r\n\n": "a\r\n",
		"\r":      "\r",
	}
	for in, want := range tests {
		if got := StripTrailingNewline(in); got != want {
			t.Errorf("StripTrailingNewline(%q) = %q, want %q", in, got, want)
		}
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
