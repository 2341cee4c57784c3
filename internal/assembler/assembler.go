// Package assembler renders a resolved answer set into a document path and
// content, and writes it to the vault.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/starford/notewright/internal/answers"
	"github.com/starford/notewright/internal/apperr"
	"github.com/starford/notewright/internal/debuglog"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/parser"
	"github.com/starford/notewright/internal/placeholder"
	"github.com/starford/notewright/internal/storage"
)

const delim = "---"

// Document is an assembled document, ready to write.
type Document struct {
	Path    string
	Content string
}

// Assembler builds documents from subtype definitions.
type Assembler struct {
	vault storage.Provider
	log   *debuglog.Logger
}

// New returns an Assembler reading templates from and writing documents to
// vault.
func New(vault storage.Provider, log *debuglog.Logger) *Assembler {
	if log == nil {
		log = debuglog.Discard()
	}
	return &Assembler{vault: vault, log: log}
}

// WithLogger returns a copy of a logging to log.
func (a *Assembler) WithLogger(log *debuglog.Logger) *Assembler {
	cp := *a
	cp.log = log
	return &cp
}

// Assemble renders the document for subtype. Missing template or base front
// matter files degrade to empty content with a warning.
func (a *Assembler) Assemble(ctx context.Context, noteType *models.NoteType, subtype *models.NoteSubtype, set *answers.Set) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if set == nil {
		set = answers.New()
	}

	p := DocumentPath(subtype, set)
	fields := FrontMatterLines(subtype.FrontMatter, set, a.log)

	var b strings.Builder
	b.WriteString(baseFrontMatter(a.read(noteType.BaseFrontMatterPath, "base front matter")))
	for _, f := range fields {
		b.WriteString("\n")
		b.WriteString(f)
	}
	b.WriteString("\n" + delim)
	fm := b.String()

	if _, err := parser.FrontMatter([]byte(fm)); err != nil {
		a.log.Warn("generated front matter is not valid YAML", "path", p, "error", err)
	}
	a.log.Debug(debuglog.FrontMatter, "front matter generated", "path", p, "fields", len(fields))

	content := fm + "\n" + a.read(subtype.Template, "template")
	return Document{Path: p, Content: placeholder.Render(content, set)}, nil
}

// Create assembles the document and writes it, creating its folder when
// needed. It fails with apperr.ErrAlreadyExists when the path is taken. The
// new document is handed to the vault opener.
func (a *Assembler) Create(ctx context.Context, noteType *models.NoteType, subtype *models.NoteSubtype, set *answers.Set) (Document, error) {
	doc, err := a.Assemble(ctx, noteType, subtype, set)
	if err != nil {
		return Document{}, err
	}
	if dir := path.Dir(doc.Path); dir != "." && dir != "/" {
		ok, err := a.vault.Exists(dir)
		if err != nil {
			return Document{}, err
		}
		if !ok {
			if err := a.vault.MakeFolder(dir); err != nil {
				return Document{}, err
			}
		}
	}
	if err := a.vault.CreateFile(doc.Path, []byte(doc.Content)); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return Document{}, fmt.Errorf("document %s: %w", doc.Path, apperr.ErrAlreadyExists)
		}
		return Document{}, err
	}
	if err := a.vault.OpenFile(doc.Path); err != nil {
		a.log.Warn("open document failed", "path", doc.Path, "error", err)
	}
	return doc, nil
}

// DocumentPath renders folder and title into "folder/title.md".
func DocumentPath(subtype *models.NoteSubtype, set placeholder.Lookup) string {
	folder := strings.Trim(placeholder.Render(subtype.Folder, set), "/")
	title := placeholder.Render(subtype.Title, set) + ".md"
	if folder == "" {
		return title
	}
	return folder + "/" + title
}

func (a *Assembler) read(p, what string) string {
	if p == "" {
		return ""
	}
	data, err := a.vault.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.log.Warn(what+" not found", "path", p)
		} else {
			a.log.Warn("read "+what+" failed", "path", p, "error", err)
		}
		return ""
	}
	return string(data)
}

// baseFrontMatter normalizes the base front matter so that it opens a block
// and does not close it.
func baseFrontMatter(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	if s == "" {
		return delim
	}
	if strings.HasSuffix(s, "\n"+delim) {
		s = strings.TrimRight(strings.TrimSuffix(s, delim), "\r\n")
	}
	s = strings.TrimLeft(s, "\r\n")
	if s == delim {
		return delim
	}
	if !strings.HasPrefix(s, delim+"\n") && !strings.HasPrefix(s, delim+"\r\n") {
		s = delim + "\n" + s
	}
	return s
}
