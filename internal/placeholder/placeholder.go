// Package placeholder substitutes {{answerId}} references with answer values.
package placeholder

import (
	"regexp"
	"strings"

	"github.com/starford/notewright/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Lookup resolves an answer-id to its answer.
type Lookup interface {
	Get(id string) (models.Answer, bool)
}

// Render replaces every {{id}} in s with the text of the matching answer.
// Unknown ids are left in place.
func Render(s string, answers Lookup) string {
	if answers == nil {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		id := strings.TrimSpace(m[2 : len(m)-2])
		a, ok := answers.Get(id)
		if !ok {
			return m
		}
		return a.String()
	})
}

// Unresolved returns the ids of placeholders still present in s, in order.
func Unresolved(s string) []string {
	matches := placeholderRe.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// Sole returns the id when s consists of exactly one placeholder, ignoring
// surrounding whitespace.
func Sole(s string) (string, bool) {
	t := strings.TrimSpace(s)
	loc := placeholderRe.FindStringSubmatchIndex(t)
	if loc == nil || loc[0] != 0 || loc[1] != len(t) {
		return "", false
	}
	return strings.TrimSpace(t[loc[2]:loc[3]]), true
}
