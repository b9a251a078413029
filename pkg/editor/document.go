package editor

import (
	"slices"
	"unicode/utf8"
)

// Document is an editor document tree with its node identity allocator.
type Document struct {
	root *Node
	next NodeID
}

func newDocument() *Document {
	d := &Document{}
	d.root = d.newNode(TypeDoc)
	return d
}

func (d *Document) newNode(t NodeType) *Node {
	d.next++
	return &Node{ID: d.next, Type: t}
}

// Blocks returns the top-level nodes.
func (d *Document) Blocks() []*Node {
	return d.root.Content
}

// Len is the number of top-level nodes.
func (d *Document) Len() int {
	return len(d.root.Content)
}

// Node finds a node by identity.
func (d *Document) Node(id NodeID) (*Node, bool) {
	var found *Node
	d.walk(func(n *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Images returns the image nodes in document order.
func (d *Document) Images() []*Node {
	var out []*Node
	d.walk(func(n *Node) bool {
		if n.Type == TypeImage {
			out = append(out, n)
		}
		return true
	})
	return out
}

// walk visits nodes depth first in document order until fn returns false.
func (d *Document) walk(fn func(*Node) bool) {
	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		if !fn(n) {
			return false
		}
		for _, c := range n.Content {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(d.root)
}

func (d *Document) textblocks() []*Node {
	var out []*Node
	d.walk(func(n *Node) bool {
		if n.isTextblock() {
			out = append(out, n)
		}
		return true
	})
	return out
}

// path returns the ancestors of target from the root down to its parent.
func (d *Document) path(target *Node) []*Node {
	var stack []*Node
	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		if n == target {
			return true
		}
		stack = append(stack, n)
		for _, c := range n.Content {
			if visit(c) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		return false
	}
	if !visit(d.root) {
		return nil
	}
	return stack
}

func (d *Document) parentOf(target *Node) (*Node, int) {
	path := d.path(target)
	if len(path) == 0 {
		return nil, -1
	}
	parent := path[len(path)-1]
	return parent, slices.Index(parent.Content, target)
}

func (d *Document) nearestList(block *Node) *Node {
	path := d.path(block)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].isList() {
			return path[i]
		}
	}
	return nil
}

// nearestItem returns the list item holding block and the list holding that item.
func (d *Document) nearestItem(block *Node) (item, list *Node) {
	path := d.path(block)
	for i := len(path) - 1; i > 0; i-- {
		if path[i].Type == TypeListItem && path[i-1].isList() {
			return path[i], path[i-1]
		}
	}
	return nil, nil
}

// positionOf maps a textblock back to its index in document order.
func (d *Document) positionOf(block *Node, offset int) Position {
	return Position{Block: slices.Index(d.textblocks(), block), Offset: offset}
}

// splitAt ensures an inline node boundary at offset and returns the index of
// the first inline node starting at or after it.
func (d *Document) splitAt(block *Node, offset int) int {
	pos := 0
	for i, n := range block.Content {
		if offset <= pos {
			return i
		}
		size := n.size()
		if offset < pos+size {
			runes := []rune(n.Text)
			right := d.newNode(TypeText)
			right.Text = string(runes[offset-pos:])
			right.Marks = slices.Clone(n.Marks)
			n.Text = string(runes[:offset-pos])
			block.Content = slices.Insert(block.Content, i+1, right)
			return i + 1
		}
		pos += size
	}
	return len(block.Content)
}

// mapRange calls fn for every inline node fully inside [from, to).
func (d *Document) mapRange(block *Node, from, to int, fn func(*Node)) bool {
	if from >= to {
		return false
	}
	start := d.splitAt(block, from)
	end := d.splitAt(block, to)
	for _, n := range block.Content[start:end] {
		fn(n)
	}
	normalizeInline(block)
	return end > start
}

// splitBlock moves the inline content after offset into a new paragraph.
func (d *Document) splitBlock(block *Node, offset int) *Node {
	idx := d.splitAt(block, offset)
	tail := d.newNode(TypeParagraph)
	tail.Content = slices.Clone(block.Content[idx:])
	block.Content = slices.Clip(block.Content[:idx])
	return tail
}

// adopt renumbers the nodes of another document into this one and returns its blocks.
func (d *Document) adopt(other *Document) []*Node {
	blocks := other.root.Content
	var visit func(n *Node)
	visit = func(n *Node) {
		d.next++
		n.ID = d.next
		for _, c := range n.Content {
			visit(c)
		}
	}
	for _, b := range blocks {
		visit(b)
	}
	return blocks
}

// assignIDs numbers nodes in document order. Claimed IDs (from data-node-id
// on the editing surface) are kept when valid and unique so an affordance
// resolves to the same image across round trips.
func (d *Document) assignIDs(claims map[*Node]NodeID) {
	used := make(map[NodeID]bool, len(claims))
	keep := make(map[*Node]bool, len(claims))
	d.walk(func(n *Node) bool {
		if id, ok := claims[n]; ok && id > 0 && !used[id] {
			used[id] = true
			keep[n] = true
		}
		return true
	})
	var counter, highest NodeID
	d.walk(func(n *Node) bool {
		if keep[n] {
			n.ID = claims[n]
		} else {
			counter++
			for used[counter] {
				counter++
			}
			n.ID = counter
		}
		highest = max(highest, n.ID)
		return true
	})
	d.next = highest
}

// linkRange finds the contiguous run of text carrying the same link around offset.
func linkRange(block *Node, offset int) (int, int, bool) {
	type span struct {
		node       *Node
		start, end int
	}
	spans := make([]span, 0, len(block.Content))
	pos := 0
	for _, n := range block.Content {
		spans = append(spans, span{n, pos, pos + n.size()})
		pos += n.size()
	}
	hit := -1
	for i, s := range spans {
		if s.node.Type != TypeText || !hasMark(s.node.Marks, MarkLink) {
			continue
		}
		if (offset > s.start && offset <= s.end) || (offset == 0 && s.start == 0) {
			hit = i
			break
		}
	}
	if hit < 0 {
		return 0, 0, false
	}
	link, _ := findMark(spans[hit].node.Marks, MarkLink)
	same := func(n *Node) bool {
		m, ok := findMark(n.Marks, MarkLink)
		return n.Type == TypeText && ok && m.Href == link.Href
	}
	lo, hi := hit, hit
	for lo > 0 && same(spans[lo-1].node) {
		lo--
	}
	for hi < len(spans)-1 && same(spans[hi+1].node) {
		hi++
	}
	return spans[lo].start, spans[hi].end, true
}

// marksAt returns the marks of the text just before offset, or at it when offset is 0.
func marksAt(block *Node, offset int) []Mark {
	pos := 0
	for _, n := range block.Content {
		size := n.size()
		if (offset > pos && offset <= pos+size) || (offset == 0 && pos == 0) {
			if n.Type == TypeText {
				return slices.Clone(n.Marks)
			}
			return nil
		}
		pos += size
	}
	return nil
}

func runeCount(s string) int {
	return utf8.RuneCountInString(s)
}
