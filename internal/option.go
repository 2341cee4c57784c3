package internal

import (
	"io"

	"github.com/starford/notewright/internal/prompt"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	prompter  prompt.Prompter
	notifier  prompt.Notifier
	logOutput io.Writer
	version   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithPrompter replaces the terminal prompter, e.g. with a prompt.Script.
func WithPrompter(p prompt.Prompter) Option {
	return func(a *application) {
		a.prompter = p
	}
}

// WithNotifier replaces the terminal notifier.
func WithNotifier(n prompt.Notifier) Option {
	return func(a *application) {
		a.notifier = n
	}
}

// WithLogOutput sets where logs are written. Defaults to stderr so that
// stdout stays free for prompts and the MCP transport.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
