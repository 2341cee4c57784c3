// Package debuglog wraps a slog.Logger with per-category debug switches.
package debuglog

import (
	"context"
	"log/slog"
	"strings"
)

// Category names a family of debug messages.
type Category string

const (
	General       Category = "general"
	AnswerID      Category = "answerId"
	Nested        Category = "nestedTpsuggester"
	AnswerStorage Category = "answerStorage"
	QuestionFlow  Category = "questionFlow"
	FormatAnswer  Category = "formatAnswer"
	FrontMatter   Category = "frontMatter"
	Errors        Category = "error"
)

// All lists every known category.
var All = []Category{General, AnswerID, Nested, AnswerStorage, QuestionFlow, FormatAnswer, FrontMatter, Errors}

// Logger emits debug lines only for enabled categories. Warnings and errors
// always pass through.
type Logger struct {
	base    *slog.Logger
	enabled map[Category]bool
}

// New returns a Logger over base with the given categories enabled.
func New(base *slog.Logger, enabled ...Category) *Logger {
	if base == nil {
		base = slog.New(slog.DiscardHandler)
	}
	l := &Logger{base: base, enabled: make(map[Category]bool, len(enabled))}
	for _, c := range enabled {
		l.enabled[c] = true
	}
	return l
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(nil)
}

// Parse maps configured names to categories. "all" enables every category;
// matching is case-insensitive and unknown names are returned separately.
func Parse(names []string) (cats []Category, unknown []string) {
	for _, n := range names {
		if strings.EqualFold(n, "all") {
			return append([]Category(nil), All...), unknown
		}
		found := false
		for _, c := range All {
			if strings.EqualFold(n, string(c)) {
				cats = append(cats, c)
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, n)
		}
	}
	return cats, unknown
}

// Enabled reports whether c is switched on.
func (l *Logger) Enabled(c Category) bool {
	return l.enabled[c]
}

// With returns a Logger whose lines carry args.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{base: l.base.With(args...), enabled: l.enabled}
}

// Slog returns the underlying logger.
func (l *Logger) Slog() *slog.Logger {
	return l.base
}

// Debug logs msg at debug level when c is enabled.
func (l *Logger) Debug(c Category, msg string, args ...any) {
	if !l.enabled[c] {
		return
	}
	l.base.Log(context.Background(), slog.LevelDebug, msg, append([]any{slog.String("category", string(c))}, args...)...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.base.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.base.Error(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.base.Info(msg, args...)
}
