package assembler

import (
	"strings"

	"github.com/starford/notewright/internal/debuglog"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/placeholder"
)

// FrontMatterLines formats every field whose value resolves against set.
// Fields referring to unanswered ids are dropped.
func FrontMatterLines(fields []models.FrontMatterField, set placeholder.Lookup, log *debuglog.Logger) []string {
	if log == nil {
		log = debuglog.Discard()
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		v, ok := fieldValue(f, set)
		if !ok {
			log.Debug(debuglog.FrontMatter, "field dropped", "field", f.ID, "template", f.Value)
			continue
		}
		line := formatField(f.ID, v, f.Type == models.FieldTypeLink)
		log.Debug(debuglog.FormatAnswer, "field formatted", "field", f.ID, "line", line)
		out = append(out, line)
	}
	return out
}

// fieldValue resolves the value template of f. A template that is a single
// placeholder yields the raw answer value so that lists stay lists.
func fieldValue(f models.FrontMatterField, set placeholder.Lookup) (models.Value, bool) {
	if id, ok := placeholder.Sole(f.Value); ok {
		if a, found := set.Get(id); found {
			return a.Value, true
		}
	}
	rendered := placeholder.Render(f.Value, set)
	unresolved := placeholder.Unresolved(rendered)
	if len(unresolved) == 0 {
		return models.Scalar(rendered), true
	}
	if a, found := set.Get(unresolved[0]); found {
		return a.Value, true
	}
	return nil, false
}

func formatField(id string, v models.Value, link bool) string {
	switch val := v.(type) {
	case models.ScalarList:
		var b strings.Builder
		b.WriteString(id + ":")
		for _, item := range val {
			b.WriteString("\n  - " + quote(item, link))
		}
		return b.String()
	case models.NestedMap:
		return id + ": " + quote(models.Answer{Value: val}.String(), link)
	case models.Scalar:
		return id + ": " + quote(string(val), link)
	default:
		return id + ": " + quote("", link)
	}
}

func quote(s string, link bool) string {
	if link {
		s = "[[" + s + "]]"
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
