// SPDX-License-Identifier: MPL-2.0

package filter

import (
	"context"
	"errors"

	"github.com/poshfilter/poshfilter/internal/codec"
	"github.com/poshfilter/poshfilter/internal/runtime"
	"github.com/poshfilter/poshfilter/internal/script"
)

// Notification levels.
const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// ErrCanceled is returned by a Prompter or Selector when the user dismisses
// it. The cycle then ends without effect.
var ErrCanceled = errors.New("canceled by user")

type (
	// Level is the severity of a notification.
	Level int

	// Prompter shows a single-line input pre-filled with initial.
	Prompter interface {
		Prompt(ctx context.Context, label, initial string) (string, error)
	}

	// Selector shows items and returns the chosen one.
	Selector interface {
		Select(ctx context.Context, title string, items []string) (string, error)
	}

	// Notifier displays status messages.
	Notifier interface {
		Notify(level Level, msg string)
	}

	// CodecResolver resolves the encodings for one invocation.
	CodecResolver interface {
		Resolve(ctx context.Context) (codec.Set, error)
	}

	// SlotAllocator hands out workspace slots.
	SlotAllocator interface {
		Allocate(ctx context.Context) (*script.Slot, error)
	}

	// ScriptWriter renders and writes script documents.
	ScriptWriter interface {
		Synthesize(slot *script.Slot, texts []string, pipeline string, set codec.Set) (*script.Document, error)
	}

	// ProcessRunner runs a written script document.
	ProcessRunner interface {
		Interpreter() string
		Run(ctx context.Context, scriptPath string, extra []string, set codec.Set) (*runtime.Result, error)
	}

	// ResultCollector reads the results a run left in its slot.
	ResultCollector interface {
		Collect(slot *script.Slot, doc *script.Document) ([]string, error)
	}
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}
