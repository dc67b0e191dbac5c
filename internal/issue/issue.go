// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	InterpreterNotFoundId Id = iota + 1
	CodePageUnresolvedId
	ScriptUnwritableId
	ArgumentTooLongId
	PipelineFailedId
	PipelineTimedOutId
	CorrelationFailedId
	HistorySaveFailedId
	ConfigLoadFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry describing a problem and how to fix it.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with the glamour style at stylePath ("dark",
// "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	interpreterNotFoundIssue = &Issue{
		id: InterpreterNotFoundId,
		mdMsg: `
# PowerShell not found!

poshfilter runs every pipeline in a PowerShell process, and the configured
interpreter could not be started.

## Things you can try:
- Install PowerShell 7 (` + "`pwsh`" + `) and make sure it is on your PATH
- Point poshfilter at an explicit interpreter:
~~~cue
interpreter: "/usr/local/bin/pwsh"
~~~
- Or override it for a single run:
~~~
$ POSHFILTER_INTERPRETER=powershell poshfilter run ...
~~~`,
		extLinks: []HttpLink{"https://learn.microsoft.com/powershell/scripting/install/installing-powershell"},
	}

	codePageUnresolvedIssue = &Issue{
		id: CodePageUnresolvedId,
		mdMsg: `
# Could not determine the console code page!

Error output from PowerShell is decoded with the console's code page. It is
queried by running ` + "`chcp`" + ` unless a code page is configured.

## Things you can try:
- Set the code page explicitly:
~~~cue
codec: {
	stderr_code_page: "850"
}
~~~
- Use ` + "`auto`" + ` to take the system OEM code page without running a command
- Check the detected value:
~~~
$ poshfilter codepage
~~~`,
	}

	scriptUnwritableIssue = &Issue{
		id: ScriptUnwritableId,
		mdMsg: `
# Could not write the filter script!

Each run writes a short PowerShell script to a scratch directory.

## Things you can try:
- Check that the directory exists and is writable
- Choose another directory:
~~~cue
script: {
	dir: "/tmp/poshfilter"
}
~~~
- With ` + "`slot: \"fixed\"`" + `, make sure no other process holds the lock file`,
	}

	argumentTooLongIssue = &Issue{
		id: ArgumentTooLongId,
		mdMsg: `
# Selection too large for the command line!

The ` + "`base64`" + ` transport passes fragments as process arguments, and
the encoded selection exceeds the command line limit.

## Things you can try:
- Switch to the literal transport, which embeds fragments in the script:
~~~cue
script: {
	transport: "literal"
}
~~~
- Select fewer fragments`,
	}

	pipelineFailedIssue = &Issue{
		id: PipelineFailedId,
		mdMsg: `
# The pipeline failed!

PowerShell reported an error while running your pipeline. The text has not
been changed.

## Things you can try:
- Read the diagnostic above; it comes straight from PowerShell
- Re-run interactively: the prompt is pre-filled with the failed pipeline
- Try the pipeline in a PowerShell session on a sample string:
~~~powershell
'sample' | %{ $_.ToUpper() }
~~~`,
	}

	pipelineTimedOutIssue = &Issue{
		id: PipelineTimedOutId,
		mdMsg: `
# The pipeline timed out!

The PowerShell process did not finish in time and was stopped.

## Things you can try:
- Check that the pipeline does not wait for input
- Raise the limit:
~~~cue
runner: {
	timeout: "5m"
}
~~~`,
	}

	correlationFailedIssue = &Issue{
		id: CorrelationFailedId,
		mdMsg: `
# Unexpected interpreter output!

PowerShell exited successfully but did not leave exactly one result per
fragment. The text has not been changed.

## Things you can try:
- Make sure the pipeline does not change ` + "`$outputPath`" + ` or exit early
- Switch the output format:
~~~cue
script: {
	output: "files"
}
~~~
- Run with ` + "`--verbose`" + ` to keep a log of the slot directory`,
	}

	historySaveFailedIssue = &Issue{
		id: HistorySaveFailedId,
		mdMsg: `
# Could not save the pipeline history!

## Things you can try:
- Check that the history file's directory is writable
- Choose another location:
~~~cue
history: {
	path: "~/.poshfilter_history"
}
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the poshfilter configuration file.

## Things you can try:
- Check the file for CUE syntax errors
- Compare it with the defaults:
~~~
$ poshfilter config show
~~~
- Start over from a fresh file:
~~~
$ poshfilter config init --force
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	issues = map[Id]*Issue{
		interpreterNotFoundIssue.Id(): interpreterNotFoundIssue,
		codePageUnresolvedIssue.Id():  codePageUnresolvedIssue,
		scriptUnwritableIssue.Id():    scriptUnwritableIssue,
		argumentTooLongIssue.Id():     argumentTooLongIssue,
		pipelineFailedIssue.Id():      pipelineFailedIssue,
		pipelineTimedOutIssue.Id():    pipelineTimedOutIssue,
		correlationFailedIssue.Id():   correlationFailedIssue,
		historySaveFailedIssue.Id():   historySaveFailedIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
