// Package prompt defines the interactive primitives the question engine
// drives, plus a scripted implementation for non-interactive runs.
package prompt

import (
	"context"

	"github.com/starford/notewright/internal/apperr"
)

// Pseudo-options offered by suggester questions.
const (
	NewEntryOption = "New Entry"
	DoneOption     = "Done"
)

// ErrCancelled is returned when the user dismisses a prompt.
var ErrCancelled = apperr.ErrCancelled

// Prompter asks the user for input. Both methods return ErrCancelled when
// the user dismisses the prompt.
type Prompter interface {
	// Choose presents options in order and returns the picked one.
	Choose(ctx context.Context, header string, options []string) (string, error)
	// Input asks for free text. initial pre-fills the field.
	Input(ctx context.Context, header, placeholder, initial string) (string, error)
}

// Notifier shows short user-facing messages.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// Discard is a Notifier that drops every message.
var Discard Notifier = NotifierFunc(func(string) {})
