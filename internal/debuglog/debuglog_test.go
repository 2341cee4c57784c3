package debuglog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newBuffered(cats ...Category) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(base, cats...), &buf
}

func TestDebugRespectsCategories(t *testing.T) {
	l, buf := newBuffered(QuestionFlow)

	l.Debug(QuestionFlow, "asked")
	l.Debug(FrontMatter, "hidden")

	out := buf.String()
	if !strings.Contains(out, "asked") || !strings.Contains(out, "category=questionFlow") {
		t.Errorf("missing enabled line: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("disabled category logged: %q", out)
	}
}

func TestWarnAlwaysLogged(t *testing.T) {
	l, buf := newBuffered()
	l.Warn("template missing", slog.String("path", "t.md"))
	if !strings.Contains(buf.String(), "template missing") {
		t.Errorf("warn not logged: %q", buf.String())
	}
}

func TestParse(t *testing.T) {
	cats, unknown := Parse([]string{"QuestionFlow", "frontmatter", "bogus"})
	if len(cats) != 2 || cats[0] != QuestionFlow || cats[1] != FrontMatter {
		t.Errorf("cats = %v", cats)
	}
	if len(unknown) != 1 || unknown[0] != "bogus" {
		t.Errorf("unknown = %v", unknown)
	}

	all, _ := Parse([]string{"all"})
	if len(all) != len(All) {
		t.Errorf("all = %v", all)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Debug(General, "x")
	l.Error("y")
	if l.Enabled(General) {
		t.Error("discard logger should have no categories")
	}
}
