// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/poshfilter/poshfilter/pkg/platform"
)

// TestRunner_RealInterpreter runs a synthesized document through an
// installed PowerShell.
func TestRunner_RealInterpreter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	interpreter := platform.DefaultInterpreter(platform.CurrentOS())
	if _, err := exec.LookPath(interpreter); err != nil {
		t.Skipf("%s not on PATH", interpreter)
	}
	t.Parallel()

	slot, doc, set := prepare(t, []string{"hello", "it's"}, "%{ $_.ToUpper() }")
	if _, err := NewRunner(Options{Interpreter: interpreter}).Run(t.Context(), slot.ScriptPath, doc.Args, set); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, err := os.ReadFile(slot.OutputPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	for _, want := range []string{"HELLO", "IT'S"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output %q does not contain %q", data, want)
		}
	}
}
