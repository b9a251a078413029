package editor

import (
	"errors"
	"testing"
)

func TestNewEmptyEditor(t *testing.T) {
	e := New("")
	if got := e.HTML(); got != "<p></p>" {
		t.Fatalf("unexpected html: %q", got)
	}
	if e.State() != StateEmpty {
		t.Fatalf("expected empty state, got %s", e.State())
	}
	if e.FieldValue() != "" {
		t.Fatalf("expected empty field value, got %q", e.FieldValue())
	}
}

func TestInsertTextAndStoredMarks(t *testing.T) {
	e := New("")
	var values []string
	e.OnUpdate(func(v string) { values = append(values, v) })

	if !e.ToggleBold() {
		t.Fatal("expected toggle to apply at cursor")
	}
	if !e.IsActive("bold") {
		t.Fatal("stored bold should be active")
	}
	e.InsertText("bold")
	if got := e.HTML(); got != "<p><strong>bold</strong></p>" {
		t.Fatalf("unexpected html: %q", got)
	}
	if e.State() != StateNonEmpty {
		t.Fatalf("expected non-empty state")
	}
	if len(values) != 1 || values[0] != "<p><strong>bold</strong></p>" {
		t.Fatalf("unexpected update notifications: %#v", values)
	}
}

func TestInsertTextWithNewline(t *testing.T) {
	e := New("<p>ab</p>")
	e.Select(Cursor(Position{Block: 0, Offset: 1}))
	e.InsertText("x\ny")
	if got := e.HTML(); got != "<p>ax<br>yb</p>" {
		t.Fatalf("unexpected html: %q", got)
	}
	if got := e.Selection(); got != Cursor(Position{Block: 0, Offset: 4}) {
		t.Fatalf("unexpected selection: %+v", got)
	}
}

func TestToggleBoldOverRange(t *testing.T) {
	e := New("<p>Hello world</p>")
	e.Select(Selection{From: Position{0, 0}, To: Position{0, 5}})

	e.ToggleBold()
	if got := e.HTML(); got != "<p><strong>Hello</strong> world</p>" {
		t.Fatalf("unexpected html after bold: %q", got)
	}
	if !e.IsActive("bold") {
		t.Fatal("expected bold active over range")
	}
	e.ToggleBold()
	if got := e.HTML(); got != "<p>Hello world</p>" {
		t.Fatalf("unexpected html after unbold: %q", got)
	}
}

func TestToggleItalicAcrossBlocks(t *testing.T) {
	e := New("<p>one</p><p>two</p>")
	e.Select(Selection{From: Position{0, 1}, To: Position{1, 2}})
	e.ToggleItalic()
	if got := e.HTML(); got != "<p>o<em>ne</em></p><p><em>tw</em>o</p>" {
		t.Fatalf("unexpected html: %q", got)
	}
}

func TestSetAndUnsetLink(t *testing.T) {
	e := New("<p>docs</p>")
	e.Select(Selection{From: Position{0, 0}, To: Position{0, 4}})
	if e.SetLink("   ") {
		t.Fatal("blank href should not apply")
	}
	if e.SetLink("javascript:alert(1)") {
		t.Fatal("script href should not apply")
	}
	if !e.SetLink(" https://example.com/docs ") {
		t.Fatal("expected link to apply")
	}
	if got := e.HTML(); got != "<p>"+link+"docs</a></p>" {
		t.Fatalf("unexpected html: %q", got)
	}
}

func TestUnsetLinkAtCursorRemovesWholeLink(t *testing.T) {
	e := New("<p>see " + link + "docs</a> now</p>")
	e.Select(Cursor(Position{Block: 0, Offset: 6}))
	if !e.IsActive("link") {
		t.Fatal("expected link active inside link")
	}
	if !e.UnsetLink() {
		t.Fatal("expected unset to apply")
	}
	if got := e.HTML(); got != "<p>see docs now</p>" {
		t.Fatalf("unexpected html: %q", got)
	}
}

func TestToggleLists(t *testing.T) {
	e := New("<p>one</p><p>two</p>")
	e.Select(Selection{From: Position{0, 0}, To: Position{1, 3}})

	e.ToggleBulletList()
	if got := e.HTML(); got != "<ul><li><p>one</p></li><li><p>two</p></li></ul>" {
		t.Fatalf("unexpected html after bullet: %q", got)
	}
	if !e.IsActive("bulletList") || e.IsActive("orderedList") {
		t.Fatalf("unexpected active states: %+v", e.ActiveStates())
	}

	e.ToggleOrderedList()
	if got := e.HTML(); got != "<ol><li><p>one</p></li><li><p>two</p></li></ol>" {
		t.Fatalf("unexpected html after ordered: %q", got)
	}

	e.ToggleOrderedList()
	if got := e.HTML(); got != "<p>one</p><p>two</p>" {
		t.Fatalf("unexpected html after lift: %q", got)
	}
}

func TestToggleListLiftsMiddleItem(t *testing.T) {
	e := New("<ul><li><p>a</p></li><li><p>b</p></li><li><p>c</p></li></ul>")
	e.Select(Cursor(Position{Block: 1, Offset: 0}))
	e.ToggleBulletList()
	want := "<ul><li><p>a</p></li></ul><p>b</p><ul><li><p>c</p></li></ul>"
	if got := e.HTML(); got != want {
		t.Fatalf("unexpected html: %q", got)
	}
}

func TestInsertImageSplitsParagraph(t *testing.T) {
	e := New("<p>Hello</p>")
	e.Select(Cursor(Position{Block: 0, Offset: 2}))

	id, err := e.InsertImage("/img/1.png")
	if err != nil {
		t.Fatalf("insert image: %v", err)
	}
	if got := e.HTML(); got != "<p>He</p>"+img1+"<p>llo</p>" {
		t.Fatalf("unexpected html: %q", got)
	}
	if n, ok := e.Document().Node(id); !ok || n.Type != TypeImage {
		t.Fatalf("inserted node not found: %+v", n)
	}
	if got := e.Selection(); got != Cursor(Position{Block: 1, Offset: 0}) {
		t.Fatalf("unexpected selection: %+v", got)
	}
}

func TestInsertImageIntoEmptyDocument(t *testing.T) {
	e := New("")
	if _, err := e.InsertImage(""); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	if _, err := e.InsertImage("/img/1.png"); err != nil {
		t.Fatalf("insert image: %v", err)
	}
	if got := e.HTML(); got != img1+"<p></p>" {
		t.Fatalf("unexpected html: %q", got)
	}
	if e.State() != StateNonEmpty {
		t.Fatal("document with an image is not empty")
	}
}

func TestDeleteNodeRemovesExactlyOneImage(t *testing.T) {
	e := New("<p>a</p>" + img1 + "<p>b</p>" + img2)
	images := e.Document().Images()
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	before := e.Document().Len()

	if err := e.DeleteNode(images[0].ID); err != nil {
		t.Fatalf("delete node: %v", err)
	}
	if got := e.HTML(); got != "<p>a</p><p>b</p>"+img2 {
		t.Fatalf("unexpected html: %q", got)
	}
	if got := e.Document().Len(); got != before-1 {
		t.Fatalf("expected %d blocks, got %d", before-1, got)
	}
	if _, ok := e.Document().Node(images[1].ID); !ok {
		t.Fatal("other image must keep its identity")
	}
}

func TestDeleteNodeRejectsUnknownAndNonImages(t *testing.T) {
	e := New("<p>a</p>" + img1)
	para := e.Document().Blocks()[0]
	if err := e.DeleteNode(para.ID); !errors.Is(err, ErrNotDeletable) {
		t.Fatalf("expected ErrNotDeletable, got %v", err)
	}
	if err := e.DeleteNode(9999); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
	if got := e.HTML(); got != "<p>a</p>"+img1 {
		t.Fatalf("document changed: %q", got)
	}
}

func TestInsertMarkdown(t *testing.T) {
	e := New("")
	if err := e.InsertMarkdown("**bold** text\n\n- a\n- b"); err != nil {
		t.Fatalf("insert markdown: %v", err)
	}
	want := "<p><strong>bold</strong> text</p><ul><li><p>a</p></li><li><p>b</p></li></ul>"
	if got := e.HTML(); got != want {
		t.Fatalf("unexpected html: %q", got)
	}
	if got := e.Selection(); got != Cursor(Position{Block: 2, Offset: 1}) {
		t.Fatalf("unexpected selection: %+v", got)
	}
}

func TestInsertMarkdownDropsRawHTML(t *testing.T) {
	e := New("")
	if err := e.InsertMarkdown("<script>alert(1)</script>"); err != nil {
		t.Fatalf("insert markdown: %v", err)
	}
	if got := e.HTML(); got != "<p></p>" {
		t.Fatalf("unexpected html: %q", got)
	}
}
