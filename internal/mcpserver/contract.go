package mcpserver

// DocumentFormat describes how generated documents are laid out, so that
// LLM consumers can read them and pick answers that render well.
const DocumentFormat = `# notewright document format

Documents are created from a note type and subtype. Each subtype names a
folder, a title, front matter fields and the questions that fill them.

## Layout

` + "```" + `markdown
---
kind: place                 # base front matter of the note type, verbatim
country: "[[Italy]]"        # link field: value wrapped as a wiki link
tags:                       # list answers become YAML lists
  - "city"
---
# Rome                      # subtype template, placeholders substituted
` + "```" + `

## Rules

1. The path is ` + "`folder/title.md`" + `; both may hold ` + "`{{answerId}}`" + ` placeholders.
2. Every front matter value is a double-quoted string; quotes and
   backslashes are escaped.
3. A field whose value refers to an unanswered id is left out.
4. Nested answers (e.g. country then city) render as ` + "`Italy/Rome`" + `.
5. Existing documents are never overwritten.

## Indices

Suggester questions offer the entries of an index. Entries may sit under a
parent entry of the parent index (a city under its country); use
` + "`get_index_entries`" + ` with ` + "`parent`" + ` to list them and ` + "`add_index_entry`" + ` to add one.
`
