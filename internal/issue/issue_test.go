// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	if InterpreterNotFoundId != 1 {
		t.Errorf("InterpreterNotFoundId = %d, want 1", InterpreterNotFoundId)
	}
	seen := make(map[Id]bool)
	for _, issue := range Values() {
		if seen[issue.Id()] {
			t.Errorf("duplicate ID: %d", issue.Id())
		}
		seen[issue.Id()] = true
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{InterpreterNotFoundId, false, "PowerShell not found"},
		{CodePageUnresolvedId, false, "console code page"},
		{ScriptUnwritableId, false, "write the filter script"},
		{ArgumentTooLongId, false, "Selection too large"},
		{PipelineFailedId, false, "The pipeline failed"},
		{PipelineTimedOutId, false, "timed out"},
		{CorrelationFailedId, false, "Unexpected interpreter output"},
		{HistorySaveFailedId, false, "save the pipeline history"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			t.Parallel()
			issue := Get(tt.id)
			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	t.Parallel()

	issues := Values()
	if len(issues) != 9 {
		t.Fatalf("Values() returned %d issues, want 9", len(issues))
	}
	for i, issue := range issues {
		if issue.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, issue.Id(), i+1)
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	t.Parallel()

	issue := Get(InterpreterNotFoundId)
	links := issue.ExtLinks()
	if len(links) == 0 {
		t.Fatal("ExtLinks() is empty")
	}
	original := links[0]
	links[0] = "modified"
	if issue.ExtLinks()[0] != original {
		t.Error("ExtLinks() should return a clone")
	}
	if issue.DocLinks() != nil {
		t.Errorf("DocLinks() = %v, want nil", issue.DocLinks())
	}
}

//nolint:paralleltest // swaps the package-level renderer
func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()
	render = func(in, _ string) (string, error) { return in, nil }

	rendered, err := Get(ConfigLoadFailedId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "config init --force") {
		t.Errorf("Render() = %q, want the markdown body", rendered)
	}
	if !strings.Contains(rendered, "## See also") || !strings.Contains(rendered, "<https://cuelang.org/docs/>") {
		t.Errorf("Render() = %q, want a links section", rendered)
	}

	rendered, err = Get(PipelineFailedId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() added a links section to an issue without links")
	}
}

func TestIssue_RenderGlamour(t *testing.T) {
	t.Parallel()

	rendered, err := Get(PipelineTimedOutId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "timed out") {
		t.Errorf("Render() = %q", rendered)
	}
}
