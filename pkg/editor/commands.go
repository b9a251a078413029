package editor

import (
	"slices"
	"strings"
)

// span is the part of one textblock covered by the selection.
type span struct {
	block    *Node
	from, to int
}

func (e *Editor) spans() []span {
	blocks := e.doc.textblocks()
	if len(blocks) == 0 {
		return nil
	}
	from, to := e.clamp(e.sel.From), e.clamp(e.sel.To)
	out := make([]span, 0, to.Block-from.Block+1)
	for i := from.Block; i <= to.Block; i++ {
		s := span{block: blocks[i], from: 0, to: inlineLen(blocks[i])}
		if i == from.Block {
			s.from = from.Offset
		}
		if i == to.Block {
			s.to = to.Offset
		}
		out = append(out, s)
	}
	return out
}

// rangeHas reports whether every text node overlapping the spans carries t.
func rangeHas(spans []span, t MarkType) bool {
	found := false
	for _, s := range spans {
		pos := 0
		for _, n := range s.block.Content {
			start, end := pos, pos+n.size()
			pos = end
			if n.Type != TypeText || start >= s.to || end <= s.from {
				continue
			}
			if !hasMark(n.Marks, t) {
				return false
			}
			found = true
		}
	}
	return found
}

func (e *Editor) cursorMarks() []Mark {
	if e.hasStored {
		return slices.Clone(e.stored)
	}
	blocks := e.doc.textblocks()
	if len(blocks) == 0 {
		return nil
	}
	pos := e.clamp(e.sel.To)
	return marksAt(blocks[pos.Block], pos.Offset)
}

// ToggleBold toggles bold over the selection, or for the next typed text at a cursor.
func (e *Editor) ToggleBold() bool {
	return e.toggleMark(MarkBold)
}

// ToggleItalic toggles italic over the selection, or for the next typed text at a cursor.
func (e *Editor) ToggleItalic() bool {
	return e.toggleMark(MarkItalic)
}

func (e *Editor) toggleMark(t MarkType) bool {
	if e.sel.Empty() {
		marks := e.cursorMarks()
		if hasMark(marks, t) {
			marks = withoutMark(marks, t)
		} else {
			marks = withMark(marks, Mark{Type: t})
		}
		e.stored, e.hasStored = marks, true
		return true
	}
	spans := e.spans()
	remove := rangeHas(spans, t)
	changed := false
	for _, s := range spans {
		changed = e.doc.mapRange(s.block, s.from, s.to, func(n *Node) {
			if remove {
				n.Marks = withoutMark(n.Marks, t)
			} else {
				n.Marks = withMark(n.Marks, Mark{Type: t})
			}
		}) || changed
	}
	if changed {
		e.changed()
	}
	return changed
}

// linkSpans is the selection, or at a cursor the whole link the cursor sits in.
func (e *Editor) linkSpans() []span {
	if !e.sel.Empty() {
		return e.spans()
	}
	blocks := e.doc.textblocks()
	if len(blocks) == 0 {
		return nil
	}
	pos := e.clamp(e.sel.From)
	from, to, ok := linkRange(blocks[pos.Block], pos.Offset)
	if !ok {
		return nil
	}
	return []span{{block: blocks[pos.Block], from: from, to: to}}
}

// SetLink links the selected text to href. An empty href, or one with a
// scheme other than http, https or mailto, does nothing.
func (e *Editor) SetLink(href string) bool {
	href = strings.TrimSpace(href)
	if !allowedHref(href) {
		return false
	}
	return e.mapText(e.linkSpans(), func(n *Node) {
		n.Marks = withMark(n.Marks, Mark{Type: MarkLink, Href: href})
	})
}

// UnsetLink removes links from the selection, or the whole link at a cursor.
func (e *Editor) UnsetLink() bool {
	return e.mapText(e.linkSpans(), func(n *Node) {
		n.Marks = withoutMark(n.Marks, MarkLink)
	})
}

func (e *Editor) mapText(spans []span, fn func(*Node)) bool {
	changed := false
	for _, s := range spans {
		changed = e.doc.mapRange(s.block, s.from, s.to, func(n *Node) {
			if n.Type == TypeText {
				fn(n)
			}
		}) || changed
	}
	if changed {
		e.changed()
	}
	return changed
}

// ToggleBulletList wraps the selected blocks in a bullet list, converts an
// ordered list, or lifts the blocks out when already in a bullet list.
func (e *Editor) ToggleBulletList() bool {
	return e.toggleList(TypeBulletList)
}

// ToggleOrderedList is ToggleBulletList for ordered lists.
func (e *Editor) ToggleOrderedList() bool {
	return e.toggleList(TypeOrderedList)
}

func (e *Editor) toggleList(kind NodeType) bool {
	spans := e.spans()
	if len(spans) == 0 {
		return false
	}
	inKind := true
	for _, s := range spans {
		if list := e.doc.nearestList(s.block); list == nil || list.Type != kind {
			inKind = false
			break
		}
	}
	if inKind {
		e.liftItems(spans)
	} else {
		e.wrapInList(kind, spans)
	}
	e.changed()
	return true
}

func (e *Editor) liftItems(spans []span) {
	selected := make(map[*Node]bool)
	var lists []*Node
	for _, s := range spans {
		item, list := e.doc.nearestItem(s.block)
		if item == nil {
			continue
		}
		selected[item] = true
		if !slices.Contains(lists, list) {
			lists = append(lists, list)
		}
	}
	for _, list := range lists {
		parent, idx := e.doc.parentOf(list)
		if parent == nil {
			continue
		}
		items := list.Content
		list.Content = nil
		reused := false
		var out []*Node
		var cur *Node
		for _, item := range items {
			if selected[item] {
				if cur != nil {
					out = append(out, cur)
					cur = nil
				}
				out = append(out, item.Content...)
				continue
			}
			if cur == nil {
				if reused {
					cur = e.doc.newNode(list.Type)
				} else {
					cur, reused = list, true
				}
			}
			cur.Content = append(cur.Content, item)
		}
		if cur != nil {
			out = append(out, cur)
		}
		parent.Content = slices.Replace(parent.Content, idx, idx+1, out...)
	}
}

func (e *Editor) wrapInList(kind NodeType, spans []span) {
	var bare []*Node
	for _, s := range spans {
		if list := e.doc.nearestList(s.block); list != nil {
			list.Type = kind
			continue
		}
		bare = append(bare, s.block)
	}
	// Consecutive sibling paragraphs share one new list.
	for i := 0; i < len(bare); {
		parent, idx := e.doc.parentOf(bare[i])
		j := i + 1
		for j < len(bare) {
			p, k := e.doc.parentOf(bare[j])
			if p != parent || k != idx+(j-i) {
				break
			}
			j++
		}
		list := e.doc.newNode(kind)
		for _, para := range bare[i:j] {
			item := e.doc.newNode(TypeListItem)
			item.Content = []*Node{para}
			list.Content = append(list.Content, item)
		}
		parent.Content = slices.Replace(parent.Content, idx, idx+(j-i), list)
		i = j
	}
}

// IsActive reports toolbar state for the selection: "bold", "italic",
// "link", "bulletList" or "orderedList".
func (e *Editor) IsActive(name string) bool {
	switch name {
	case string(MarkBold), string(MarkItalic), string(MarkLink):
		t := MarkType(name)
		if e.sel.Empty() {
			return hasMark(e.cursorMarks(), t)
		}
		return rangeHas(e.spans(), t)
	case string(TypeBulletList), string(TypeOrderedList):
		blocks := e.doc.textblocks()
		if len(blocks) == 0 {
			return false
		}
		list := e.doc.nearestList(blocks[e.clamp(e.sel.From).Block])
		return list != nil && string(list.Type) == name
	}
	return false
}

// ActiveStates returns IsActive for every toolbar button.
func (e *Editor) ActiveStates() map[string]bool {
	names := []string{string(MarkBold), string(MarkItalic), string(MarkLink), string(TypeBulletList), string(TypeOrderedList)}
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = e.IsActive(name)
	}
	return out
}

// InsertText inserts text at the end of the selection. Newlines become hard
// breaks. Stored marks from a collapsed toggle apply; links do not extend.
func (e *Editor) InsertText(text string) bool {
	if text == "" {
		return false
	}
	marks := e.cursorMarks()
	if !e.hasStored {
		marks = withoutMark(marks, MarkLink)
	}
	block, pos := e.cursorTextblock()
	idx := e.doc.splitAt(block, pos.Offset)
	var nodes []*Node
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			br := e.doc.newNode(TypeHardBreak)
			br.Marks = slices.Clone(marks)
			nodes = append(nodes, br)
		}
		if line != "" {
			t := e.doc.newNode(TypeText)
			t.Text = line
			t.Marks = slices.Clone(marks)
			nodes = append(nodes, t)
		}
	}
	block.Content = slices.Insert(block.Content, idx, nodes...)
	normalizeInline(block)
	e.sel = Cursor(Position{Block: pos.Block, Offset: pos.Offset + runeCount(text)})
	e.stored, e.hasStored = nil, false
	e.changed()
	return true
}

// InsertImage inserts an image node at the cursor, splitting the paragraph
// when the cursor is inside it, and returns the new node's identity.
func (e *Editor) InsertImage(src string) (NodeID, error) {
	if strings.TrimSpace(src) == "" {
		return 0, ErrEmptySource
	}
	img := e.doc.newNode(TypeImage)
	img.Src = src
	e.insertBlocks([]*Node{img})
	e.changed()
	return img.ID, nil
}

// DeleteNode removes exactly the image with the given identity. Nothing else
// in the document changes.
func (e *Editor) DeleteNode(id NodeID) error {
	n, ok := e.doc.Node(id)
	if !ok {
		return ErrNodeNotFound
	}
	if n.Type != TypeImage {
		return ErrNotDeletable
	}
	parent, idx := e.doc.parentOf(n)
	parent.Content = slices.Delete(parent.Content, idx, idx+1)
	e.sel = Selection{From: e.clamp(e.sel.From), To: e.clamp(e.sel.To)}
	e.changed()
	return nil
}

// cursorTextblock returns the textblock at the selection end, creating an
// empty paragraph when the document has none.
func (e *Editor) cursorTextblock() (*Node, Position) {
	blocks := e.doc.textblocks()
	if len(blocks) == 0 {
		p := e.doc.newNode(TypeParagraph)
		e.doc.root.Content = append(e.doc.root.Content, p)
		return p, Position{}
	}
	pos := e.clamp(e.sel.To)
	return blocks[pos.Block], pos
}

// insertBlocks places block nodes at the cursor and moves the cursor after them.
func (e *Editor) insertBlocks(nodes []*Node) {
	block, pos := e.cursorTextblock()
	parent, idx := e.doc.parentOf(block)
	total := inlineLen(block)
	switch {
	case total == 0:
		parent.Content = slices.Replace(parent.Content, idx, idx+1, nodes...)
	case pos.Offset == 0:
		parent.Content = slices.Insert(parent.Content, idx, nodes...)
	case pos.Offset >= total:
		parent.Content = slices.Insert(parent.Content, idx+1, nodes...)
	default:
		tail := e.doc.splitBlock(block, pos.Offset)
		inserted := append(slices.Clone(nodes), tail)
		parent.Content = slices.Insert(parent.Content, idx+1, inserted...)
	}
	e.placeCursorAfter(parent, nodes[len(nodes)-1])
	e.stored, e.hasStored = nil, false
}

func (e *Editor) placeCursorAfter(parent *Node, last *Node) {
	if tb := lastTextblock(last); tb != nil {
		e.sel = Cursor(e.doc.positionOf(tb, inlineLen(tb)))
		return
	}
	idx := slices.Index(parent.Content, last)
	if idx+1 < len(parent.Content) && parent.Content[idx+1].isTextblock() {
		e.sel = Cursor(e.doc.positionOf(parent.Content[idx+1], 0))
		return
	}
	p := e.doc.newNode(TypeParagraph)
	parent.Content = slices.Insert(parent.Content, idx+1, p)
	e.sel = Cursor(e.doc.positionOf(p, 0))
}

func lastTextblock(n *Node) *Node {
	if n.isTextblock() {
		return n
	}
	for i := len(n.Content) - 1; i >= 0; i-- {
		if tb := lastTextblock(n.Content[i]); tb != nil {
			return tb
		}
	}
	return nil
}
