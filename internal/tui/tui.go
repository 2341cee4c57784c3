// Package tui implements prompt.Prompter and prompt.Notifier on a terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/notewright/internal/prompt"
)

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}

	noticeStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// Terminal asks questions with huh forms.
type Terminal struct {
	in          io.Reader
	out         io.Writer
	accessible  bool
	filterAfter int
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithIO overrides the terminal streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(t *Terminal) {
		t.in = in
		t.out = out
	}
}

// WithAccessible switches huh to its line-based accessible mode.
func WithAccessible(on bool) Option {
	return func(t *Terminal) {
		t.accessible = on
	}
}

// New returns a Terminal on stdin/stderr.
func New(opts ...Option) *Terminal {
	t := &Terminal{in: os.Stdin, out: os.Stderr, filterAfter: 10}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(t.in).
		WithOutput(t.out).
		WithAccessible(t.accessible).
		WithShowHelp(true)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return prompt.ErrCancelled
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Choose shows options as a select list. Long lists can be filtered by
// typing.
func (t *Terminal) Choose(ctx context.Context, header string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("tui: %q has no options", header)
	}
	var picked string
	sel := huh.NewSelect[string]().
		Title(header).
		Options(huh.NewOptions(options...)...).
		Filtering(len(options) > t.filterAfter).
		Value(&picked)
	if err := t.run(ctx, sel); err != nil {
		return "", err
	}
	return picked, nil
}

// Input asks for a line of text.
func (t *Terminal) Input(ctx context.Context, header, placeholder, initial string) (string, error) {
	value := initial
	in := huh.NewInput().
		Title(header).
		Placeholder(placeholder).
		Value(&value)
	if err := t.run(ctx, in); err != nil {
		return "", err
	}
	return value, nil
}

// Notifier prints styled one-line notices.
type Notifier struct {
	out io.Writer
}

// NewNotifier returns a Notifier writing to out, or stderr when nil.
func NewNotifier(out io.Writer) *Notifier {
	if out == nil {
		out = os.Stderr
	}
	return &Notifier{out: out}
}

func (n *Notifier) Notify(msg string) {
	fmt.Fprintln(n.out, noticeStyle.Render("notewright:")+" "+msg)
}

// Muted renders s in the muted style.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

var (
	_ prompt.Prompter = (*Terminal)(nil)
	_ prompt.Notifier = (*Notifier)(nil)
)
