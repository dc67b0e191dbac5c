// SPDX-License-Identifier: MPL-2.0

package history

// Intrinsic command tokens. Input must match exactly.
const (
	TokenShow    = "!h"
	TokenPersist = "!mkh"
)

type (
	// Command is the parsed form of prompt input.
	Command interface {
		isCommand()
	}

	// RunPipeline runs Text as a pipeline.
	RunPipeline struct {
		Text string
	}

	// ShowHistory lists the history for selection.
	ShowHistory struct{}

	// PersistHistory writes the history to its file.
	PersistHistory struct{}
)

func (RunPipeline) isCommand()    {}
func (ShowHistory) isCommand()    {}
func (PersistHistory) isCommand() {}

// Parse classifies input. Only the exact tokens are intrinsic; everything
// else, including the empty string, is a pipeline.
func Parse(input string) Command {
	switch input {
	case TokenShow:
		return ShowHistory{}
	case TokenPersist:
		return PersistHistory{}
	default:
		return RunPipeline{Text: input}
	}
}
