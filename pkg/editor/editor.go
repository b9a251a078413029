package editor

import "errors"

var (
	ErrNodeNotFound = errors.New("editor: node not found")
	ErrNotDeletable = errors.New("editor: only images can be deleted")
	ErrEmptySource  = errors.New("editor: image source is empty")
)

// DefaultPlaceholder is shown on the editing surface while the document is empty.
const DefaultPlaceholder = "Write your report"

// State is the emptiness classification of the document.
type State string

const (
	StateEmpty    State = "empty"
	StateNonEmpty State = "non_empty"
)

// Position addresses a cursor: the index of a textblock in document order and
// a rune offset into its inline content, where a hard break counts as one.
type Position struct {
	Block  int `json:"block"`
	Offset int `json:"offset"`
}

func (p Position) before(o Position) bool {
	return p.Block < o.Block || (p.Block == o.Block && p.Offset < o.Offset)
}

// Selection is an ordered range. From == To is a cursor.
type Selection struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}

// Cursor is a collapsed selection at p.
func Cursor(p Position) Selection {
	return Selection{From: p, To: p}
}

// Empty reports whether the selection is a cursor.
func (s Selection) Empty() bool {
	return s.From == s.To
}

// Editor owns one document, its selection and the affordance view. It is not
// safe for concurrent use; each editing surface gets its own.
type Editor struct {
	doc       *Document
	sel       Selection
	stored    []Mark
	hasStored bool
	view      *View
	listeners []func(value string)
}

// Option configures an Editor.
type Option func(*Editor)

// WithPlaceholder overrides the empty-document placeholder.
func WithPlaceholder(text string) Option {
	return func(e *Editor) {
		e.view.placeholder = text
	}
}

// New loads stored content (after legacy cleanup) and places the cursor at
// the end of the last textblock.
func New(content string, opts ...Option) *Editor {
	e := &Editor{doc: Load(content)}
	e.view = newView(e, DefaultPlaceholder)
	for _, opt := range opts {
		opt(e)
	}
	e.sel = Cursor(e.endPosition())
	e.view.Sync()
	return e
}

// Document exposes the underlying tree.
func (e *Editor) Document() *Document {
	return e.doc
}

// View returns the affordance view-model.
func (e *Editor) View() *View {
	return e.view
}

// HTML returns the canonical serialized document.
func (e *Editor) HTML() string {
	return e.doc.HTML()
}

// FieldValue is the form field value: "" when empty, the HTML otherwise.
func (e *Editor) FieldValue() string {
	return FieldValue(e.HTML())
}

// State classifies the document as empty or non-empty.
func (e *Editor) State() State {
	if IsEmptyContent(e.HTML()) {
		return StateEmpty
	}
	return StateNonEmpty
}

// OnUpdate registers fn to receive the field value after every document change.
func (e *Editor) OnUpdate(fn func(value string)) {
	e.listeners = append(e.listeners, fn)
}

// Selection returns the current selection.
func (e *Editor) Selection() Selection {
	return e.sel
}

// Select sets the selection, clamping it to the document and ordering its ends.
func (e *Editor) Select(sel Selection) {
	from, to := e.clamp(sel.From), e.clamp(sel.To)
	if to.before(from) {
		from, to = to, from
	}
	e.sel = Selection{From: from, To: to}
	e.stored, e.hasStored = nil, false
}

func (e *Editor) clamp(p Position) Position {
	blocks := e.doc.textblocks()
	if len(blocks) == 0 {
		return Position{}
	}
	p.Block = min(max(p.Block, 0), len(blocks)-1)
	p.Offset = min(max(p.Offset, 0), inlineLen(blocks[p.Block]))
	return p
}

func (e *Editor) endPosition() Position {
	blocks := e.doc.textblocks()
	if len(blocks) == 0 {
		return Position{}
	}
	last := len(blocks) - 1
	return Position{Block: last, Offset: inlineLen(blocks[last])}
}

// changed re-syncs affordances and notifies listeners after a document mutation.
func (e *Editor) changed() {
	e.view.Sync()
	value := e.FieldValue()
	for _, fn := range e.listeners {
		fn(value)
	}
}
