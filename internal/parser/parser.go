// Package parser reads generated documents back: YAML front matter, body,
// wiki links and tags.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

const delim = "---"

// ErrNoFrontMatter is returned by FrontMatter when the content does not open
// with a front matter block.
var ErrNoFrontMatter = errors.New("parser: no front matter block")

// Result holds the output of parsing a document.
type Result struct {
	FrontMatter map[string]any
	// FrontMatterErr is set when a front matter block exists but is not
	// valid YAML. The whole content is then treated as body.
	FrontMatterErr error
	Body           string
	Links          []string
	Tags           []string
	Title          string
}

// Parse extracts front matter, body, wiki links and tags from raw Markdown.
// Links are collected from the body and from front matter string values.
func Parse(data []byte) *Result {
	block, body, ok := split(data)
	r := &Result{Body: string(data)}
	if ok {
		fm, err := decode(block)
		if err != nil {
			r.FrontMatterErr = err
		} else {
			r.FrontMatter = fm
			r.Body = body
		}
	}
	r.Links = extractLinks(append(frontMatterStrings(r.FrontMatter), r.Body)...)
	r.Tags = extractTags(r.Body, r.FrontMatter)
	r.Title = deriveTitle(r.FrontMatter, r.Body)
	return r
}

// FrontMatter decodes the front matter block at the start of data. It fails
// with ErrNoFrontMatter when there is no closed block, or with the YAML error
// when the block does not decode to a mapping.
func FrontMatter(data []byte) (map[string]any, error) {
	block, _, ok := split(data)
	if !ok {
		return nil, ErrNoFrontMatter
	}
	return decode(block)
}

// split separates the YAML block between the leading delimiters from the
// body. ok is false when there is no closed block.
func split(data []byte) (block []byte, body string, ok bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	block = rest[:idx]
	after := rest[idx+1+len(delim):]
	return block, strings.TrimLeft(string(after), "\n\r"), true
}

func decode(block []byte) (map[string]any, error) {
	fm := map[string]any{}
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, fmt.Errorf("parser: front matter: %w", err)
	}
	return fm, nil
}

// frontMatterStrings returns the string values of fm, lists flattened, in
// key order.
func frontMatterStrings(fm map[string]any) []string {
	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		switch v := fm[k].(type) {
		case string:
			out = append(out, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// extractLinks returns deduplicated wiki link targets, normalising aliases.
func extractLinks(texts ...string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, text := range texts {
		for _, m := range wikilinkRe.FindAllStringSubmatch(text, -1) {
			// [[Target|Alias]] → Target.
			target, _, _ := strings.Cut(m[1], "|")
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			if _, ok := seen[target]; ok {
				continue
			}
			seen[target] = struct{}{}
			out = append(out, target)
		}
	}
	return out
}

// extractTags collects #tags from the body and the front matter "tags" list.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		add(v)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the front matter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
